package smartwallet

import (
	"github.com/arx-one/vaultkit"
	"github.com/arx-one/vaultkit/errors"
	"github.com/arx-one/vaultkit/orm"
)

const (
	// NoETA disables the timelock delay on a transaction or buffer.
	// The sentinel is negative so it can never collide with a valid
	// POSIX timestamp (zero is a valid timestamp and must not be used
	// as a marker).
	NoETA vaultkit.UnixTime = -1

	// NotExecuted marks a transaction that was not executed yet.
	NotExecuted vaultkit.UnixTime = -1

	// To avoid burning CPU, this is the maximum number of owners
	// allowed to be part of a single wallet.
	maxOwnersAllowed = 100
)

// SmartWallet is a multi owner wallet with timelock capabilities.
type SmartWallet struct {
	// Base is the opaque key this wallet's address is derived from.
	// It acts as a domain separator for all derived identities.
	Base vaultkit.Address
	// Nonce is the derivation nonce of the wallet address.
	Nonce uint8

	// MaxOwners is the owner list capacity reserved at creation. The
	// owner set may change over time but can never outgrow this.
	MaxOwners uint32
	// Threshold is the minimum number of owner approvals needed to
	// execute a transaction.
	Threshold uint32

	// MinimumDelay is the minimum duration between proposal and the
	// earliest allowed execution.
	MinimumDelay vaultkit.UnixDuration
	// GracePeriod is the duration after the ETA until a transaction
	// expires.
	GracePeriod vaultkit.UnixDuration

	// OwnerSetSeqno is the sequence number of the ownership set.
	//
	// It is bumped on every owner set mutation, threshold changes
	// included. Approvals collected under an older sequence number
	// never count, even if the owner list content is the same again.
	OwnerSetSeqno uint32
	// NumTransactions is the total number of transactions proposed on
	// this wallet. It is the source of every new transaction index
	// and is never decremented or reset.
	NumTransactions uint64

	// Owners of the wallet. The position in this list defines the
	// owner's index in every approval bitmap.
	Owners []vaultkit.Address
}

var _ orm.CloneableData = (*SmartWallet)(nil)

func (w *SmartWallet) Validate() error {
	if err := w.Base.Validate(); err != nil {
		return errors.Wrap(err, "base")
	}
	switch n := len(w.Owners); {
	case n == 0:
		return errors.Wrap(errors.ErrModel, "no owners")
	case n > int(w.MaxOwners):
		return errors.Wrap(errors.ErrModel, "owner list exceeds reserved capacity")
	}
	if w.MaxOwners > maxOwnersAllowed {
		return errors.Wrapf(errors.ErrModel, "too many owners, at most %d allowed", maxOwnersAllowed)
	}
	if err := validateOwners(errors.ErrModel, w.Owners); err != nil {
		return err
	}
	if err := validateThreshold(w.Threshold, len(w.Owners)); err != nil {
		return err
	}
	if w.MinimumDelay < 0 {
		return errors.Wrap(errors.ErrModel, "negative minimum delay")
	}
	if w.GracePeriod < 0 {
		return errors.Wrap(errors.ErrModel, "negative grace period")
	}
	return nil
}

func (w *SmartWallet) Copy() orm.CloneableData {
	owners := make([]vaultkit.Address, len(w.Owners))
	for i, o := range w.Owners {
		owners[i] = o.Clone()
	}
	return &SmartWallet{
		Base:            w.Base.Clone(),
		Nonce:           w.Nonce,
		MaxOwners:       w.MaxOwners,
		Threshold:       w.Threshold,
		MinimumDelay:    w.MinimumDelay,
		GracePeriod:     w.GracePeriod,
		OwnerSetSeqno:   w.OwnerSetSeqno,
		NumTransactions: w.NumTransactions,
		Owners:          owners,
	}
}

func (w *SmartWallet) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(w)
}

func (w *SmartWallet) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryBare(bz, w)
}

// OwnerIndex returns the position of given address in the owners list,
// or false when the address is not an owner. O(n) scan, n is bounded by
// MaxOwners.
func (w *SmartWallet) OwnerIndex(a vaultkit.Address) (int, bool) {
	for i, o := range w.Owners {
		if o.Equals(a) {
			return i, true
		}
	}
	return 0, false
}

// RequireOwnerIndex returns the position of given address in the owners
// list, failing with ErrInvalidOwner when the address is not an owner.
func (w *SmartWallet) RequireOwnerIndex(a vaultkit.Address) (int, error) {
	idx, ok := w.OwnerIndex(a)
	if !ok {
		return 0, errors.Wrapf(ErrInvalidOwner, "%s", a)
	}
	return idx, nil
}

// SetOwners replaces the owner list and bumps the owner set sequence
// number, which voids all approvals collected so far. The new list must
// fit the reserved capacity and keep the current threshold satisfiable.
func (w *SmartWallet) SetOwners(owners []vaultkit.Address) error {
	switch n := len(owners); {
	case n == 0:
		return errors.Wrap(errors.ErrMsg, "no owners")
	case n > int(w.MaxOwners):
		return errors.Wrap(errors.ErrMsg, "owner list exceeds reserved capacity")
	}
	if err := validateOwners(errors.ErrMsg, owners); err != nil {
		return err
	}
	if err := validateThreshold(w.Threshold, len(owners)); err != nil {
		return err
	}
	w.Owners = owners
	return w.bumpOwnerSetSeqno()
}

// SetThreshold changes the approval threshold. Although the owner list
// is untouched, the owner set sequence number is bumped as well so that
// approvals collected under a different threshold never carry over.
func (w *SmartWallet) SetThreshold(threshold uint32) error {
	if err := validateThreshold(threshold, len(w.Owners)); err != nil {
		return err
	}
	w.Threshold = threshold
	return w.bumpOwnerSetSeqno()
}

func (w *SmartWallet) bumpOwnerSetSeqno() error {
	if w.OwnerSetSeqno == ^uint32(0) {
		return errors.Wrap(errors.ErrOverflow, "owner set seqno")
	}
	w.OwnerSetSeqno++
	return nil
}

// NextIndex returns the index for a new transaction and increments the
// wallet's transaction counter. Indexes are unique per wallet and are
// never reused.
func (w *SmartWallet) NextIndex() uint64 {
	idx := w.NumTransactions
	w.NumTransactions++
	return idx
}

func validateOwners(baseErr *errors.Error, owners []vaultkit.Address) error {
	index := make(map[string]struct{}, len(owners))
	for _, o := range owners {
		if err := o.Validate(); err != nil {
			return errors.Wrapf(err, "owner %s", o)
		}
		key := string(o)
		if _, ok := index[key]; ok {
			return errors.Wrapf(ErrDuplicateOwner, "%s", o)
		}
		index[key] = struct{}{}
	}
	return nil
}

func validateThreshold(threshold uint32, owners int) error {
	if threshold < 1 {
		return errors.Wrap(ErrInvalidThreshold, "threshold must be greater than 0")
	}
	if int(threshold) > owners {
		return errors.Wrapf(ErrInvalidThreshold,
			"threshold is %d and must not be greater than the %d owners", threshold, owners)
	}
	return nil
}

// Transaction is a batch of instructions that may be executed by a
// wallet, at most once.
type Transaction struct {
	// Wallet this transaction belongs to.
	Wallet vaultkit.Address
	// Index is the auto incremented integer index of the transaction.
	// All transactions on the wallet can be looked up via this index.
	Index uint64
	// Proposer of the transaction.
	Proposer vaultkit.Address

	// Instructions executed, in order, when the transaction fires.
	Instructions []TXInstruction
	// Approvals[i] is true iff wallet.Owners[i] approved.
	Approvals []bool
	// OwnerSetSeqno is the wallet's owner set sequence number at
	// proposal time.
	OwnerSetSeqno uint32
	// ETA is the earliest execution time. NoETA means the transaction
	// may be executed at any time.
	ETA vaultkit.UnixTime

	// Executor is the address that executed the transaction. Empty
	// until executed.
	Executor vaultkit.Address
	// ExecutedAt is when the transaction was executed, NotExecuted
	// otherwise.
	ExecutedAt vaultkit.UnixTime
}

var _ orm.CloneableData = (*Transaction)(nil)

func (t *Transaction) Validate() error {
	if err := t.Wallet.Validate(); err != nil {
		return errors.Wrap(err, "wallet")
	}
	if err := t.Proposer.Validate(); err != nil {
		return errors.Wrap(err, "proposer")
	}
	if len(t.Instructions) == 0 {
		return errors.Wrap(errors.ErrModel, "no instructions")
	}
	for i, ins := range t.Instructions {
		if err := ins.Validate(); err != nil {
			return errors.Wrapf(err, "instruction %d", i)
		}
	}
	if len(t.Approvals) == 0 {
		return errors.Wrap(errors.ErrModel, "no approvals bitmap")
	}
	if t.ETA != NoETA {
		if err := t.ETA.Validate(); err != nil {
			return errors.Wrap(err, "eta")
		}
	}
	if t.ExecutedAt != NotExecuted {
		if err := t.ExecutedAt.Validate(); err != nil {
			return errors.Wrap(err, "executed at")
		}
		if err := t.Executor.Validate(); err != nil {
			return errors.Wrap(err, "executor")
		}
	}
	return nil
}

func (t *Transaction) Copy() orm.CloneableData {
	instructions := make([]TXInstruction, len(t.Instructions))
	for i, ins := range t.Instructions {
		instructions[i] = ins.Copy()
	}
	approvals := make([]bool, len(t.Approvals))
	copy(approvals, t.Approvals)
	return &Transaction{
		Wallet:        t.Wallet.Clone(),
		Index:         t.Index,
		Proposer:      t.Proposer.Clone(),
		Instructions:  instructions,
		Approvals:     approvals,
		OwnerSetSeqno: t.OwnerSetSeqno,
		ETA:           t.ETA,
		Executor:      t.Executor.Clone(),
		ExecutedAt:    t.ExecutedAt,
	}
}

func (t *Transaction) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(t)
}

func (t *Transaction) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryBare(bz, t)
}

// IsExecuted returns true once the transaction reached its terminal
// state. An executed transaction is immutable.
func (t *Transaction) IsExecuted() bool {
	return t.ExecutedAt != NotExecuted
}

// ApprovalCount returns the number of owners that approved.
func (t *Transaction) ApprovalCount() int {
	var cnt int
	for _, approved := range t.Approvals {
		if approved {
			cnt++
		}
	}
	return cnt
}

// Approve sets the approval flag of the owner at given index. Approving
// twice is a no-op, not an error.
func (t *Transaction) Approve(idx int) error {
	if t.IsExecuted() {
		return errors.Wrap(ErrAlreadyExecuted, "approve")
	}
	if idx < 0 || idx >= len(t.Approvals) {
		return errors.Wrapf(errors.ErrHuman, "approval index %d out of range", idx)
	}
	t.Approvals[idx] = true
	return nil
}

// Unapprove clears the approval flag of the owner at given index. It is
// permitted any time before execution.
func (t *Transaction) Unapprove(idx int) error {
	if t.IsExecuted() {
		return errors.Wrap(ErrAlreadyExecuted, "unapprove")
	}
	if idx < 0 || idx >= len(t.Approvals) {
		return errors.Wrapf(errors.ErrHuman, "approval index %d out of range", idx)
	}
	t.Approvals[idx] = false
	return nil
}

// CheckExecutable returns nil if the transaction may be executed now by
// given wallet, and the specific failure otherwise. All clock decisions
// are made against the now argument, which the caller must take from the
// host declared block time.
func (t *Transaction) CheckExecutable(now vaultkit.UnixTime, w *SmartWallet) error {
	if t.IsExecuted() {
		return errors.Wrapf(ErrAlreadyExecuted, "transaction %d", t.Index)
	}
	// The sequence number is compared by value, not by owner list
	// content. A set that round-trips back to an identical list is
	// still considered stale.
	if t.OwnerSetSeqno != w.OwnerSetSeqno {
		return errors.Wrapf(ErrStaleOwnerSet, "proposed under seqno %d, wallet is at %d",
			t.OwnerSetSeqno, w.OwnerSetSeqno)
	}
	if got, want := t.ApprovalCount(), int(w.Threshold); got < want {
		return errors.Wrapf(ErrThresholdNotMet, "%d of %d approvals", got, want)
	}
	if t.ETA != NoETA {
		if now < t.ETA {
			return errors.Wrapf(ErrETANotReached, "eta %d, now %d", t.ETA, now)
		}
		if deadline := t.ETA.Add(w.GracePeriod.Duration()); now > deadline {
			return errors.Wrapf(ErrTransactionExpired, "deadline %d, now %d", deadline, now)
		}
	}
	return nil
}

// MarkExecuted moves the transaction into its terminal state. The
// executor and execution time are recorded exactly once.
func (t *Transaction) MarkExecuted(executor vaultkit.Address, now vaultkit.UnixTime) error {
	if t.IsExecuted() {
		return errors.Wrapf(ErrAlreadyExecuted, "transaction %d", t.Index)
	}
	t.Executor = executor
	t.ExecutedAt = now
	return nil
}

// TXInstruction describes a single instruction dispatched to a target
// program when an authorized transaction or bundle executes.
type TXInstruction struct {
	// ProgramID of the instruction processor that executes this
	// instruction.
	ProgramID vaultkit.Address
	// Keys is the metadata for what accounts should be passed to the
	// instruction processor.
	Keys []TXAccountMeta
	// Data is opaque to this core and passed through to the
	// instruction processor.
	Data []byte
	// PartialSigners are additional derived authorities asserted as
	// co-signers for this instruction at dispatch time.
	PartialSigners []PartialSigner
}

func (ins TXInstruction) Validate() error {
	if err := ins.ProgramID.Validate(); err != nil {
		return errors.Wrap(err, "program id")
	}
	for i, k := range ins.Keys {
		if err := k.Key.Validate(); err != nil {
			return errors.Wrapf(err, "account meta %d", i)
		}
	}
	return nil
}

func (ins TXInstruction) Copy() TXInstruction {
	keys := make([]TXAccountMeta, len(ins.Keys))
	copy(keys, ins.Keys)
	data := make([]byte, len(ins.Data))
	copy(data, ins.Data)
	signers := make([]PartialSigner, len(ins.PartialSigners))
	copy(signers, ins.PartialSigners)
	return TXInstruction{
		ProgramID:      ins.ProgramID.Clone(),
		Keys:           keys,
		Data:           data,
		PartialSigners: signers,
	}
}

// TXAccountMeta is the account metadata used to define TXInstructions.
type TXAccountMeta struct {
	// Key is the account's address.
	Key vaultkit.Address
	// IsSigner is true if the instruction requires a signature
	// matching Key.
	IsSigner bool
	// IsWritable is true if the account may be mutated by the target
	// program.
	IsWritable bool
}

// PartialSigner identifies a deterministically derivable authority that
// can co-sign instructions for a wallet without being a wallet owner. It
// carries no approval weight and has no lifecycle of its own - it is
// resolved only at dispatch time, after all quorum and timelock checks
// passed.
type PartialSigner struct {
	// Index is the derivation index seed.
	Index uint64
	// Nonce is the derivation nonce.
	Nonce uint8
}

// SubaccountType declares the trust model of a derived identity.
type SubaccountType uint8

const (
	// SubaccountDerived identities act only through the normal
	// multi-owner approval process.
	SubaccountDerived SubaccountType = 0
	// SubaccountOwnerInvoker identities may be used directly by any
	// current owner, bypassing quorum and timelock. This is a lower
	// assurance fast path.
	SubaccountOwnerInvoker SubaccountType = 1
)

func (t SubaccountType) Validate() error {
	switch t {
	case SubaccountDerived, SubaccountOwnerInvoker:
		return nil
	default:
		return errors.Wrapf(errors.ErrState, "unknown subaccount type %d", t)
	}
}

func (t SubaccountType) String() string {
	switch t {
	case SubaccountDerived:
		return "derived"
	case SubaccountOwnerInvoker:
		return "owner_invoker"
	default:
		return "invalid"
	}
}

// SubaccountInfo maps a derived identity to its wallet and trust mode.
// The record is immutable after creation.
type SubaccountInfo struct {
	// Wallet of the subaccount.
	Wallet vaultkit.Address
	// Type of the subaccount.
	Type SubaccountType
	// Index of the subaccount.
	Index uint64
}

var _ orm.CloneableData = (*SubaccountInfo)(nil)

func (s *SubaccountInfo) Validate() error {
	if err := s.Wallet.Validate(); err != nil {
		return errors.Wrap(err, "wallet")
	}
	return errors.Wrap(s.Type.Validate(), "type")
}

func (s *SubaccountInfo) Copy() orm.CloneableData {
	return &SubaccountInfo{
		Wallet: s.Wallet.Clone(),
		Type:   s.Type,
		Index:  s.Index,
	}
}

func (s *SubaccountInfo) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(s)
}

func (s *SubaccountInfo) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryBare(bz, s)
}

// InstructionBuffer holds an ordered list of instruction bundles to be
// executed, decoupling who assembles the batch (the authority) from who
// may fire it (the executor).
type InstructionBuffer struct {
	// OwnerSetSeqno is the wallet's owner set sequence number at
	// buffer creation time. An owner set change voids the buffer.
	OwnerSetSeqno uint32
	// ETA shares the transaction semantics: NoETA, or the earliest
	// execution time for every bundle in the buffer.
	ETA vaultkit.UnixTime
	// Authority may mutate the buffer. An empty authority means the
	// buffer is finalized and immutable.
	Authority vaultkit.Address
	// Executor is the only address allowed to execute bundles.
	Executor vaultkit.Address
	// Wallet the buffer belongs to.
	Wallet vaultkit.Address
	// Bundles staged on this buffer.
	Bundles []InstructionBundle
}

var _ orm.CloneableData = (*InstructionBuffer)(nil)

func (b *InstructionBuffer) Validate() error {
	if err := b.Wallet.Validate(); err != nil {
		return errors.Wrap(err, "wallet")
	}
	if err := b.Executor.Validate(); err != nil {
		return errors.Wrap(err, "executor")
	}
	// Empty authority is the finalized marker, anything else must be
	// a valid address.
	if !b.Authority.IsEmpty() {
		if err := b.Authority.Validate(); err != nil {
			return errors.Wrap(err, "authority")
		}
	}
	if b.ETA != NoETA {
		if err := b.ETA.Validate(); err != nil {
			return errors.Wrap(err, "eta")
		}
	}
	for i, bundle := range b.Bundles {
		for j, ins := range bundle.Instructions {
			if err := ins.Validate(); err != nil {
				return errors.Wrapf(err, "bundle %d instruction %d", i, j)
			}
		}
	}
	return nil
}

func (b *InstructionBuffer) Copy() orm.CloneableData {
	bundles := make([]InstructionBundle, len(b.Bundles))
	for i, bundle := range b.Bundles {
		bundles[i] = bundle.Copy()
	}
	return &InstructionBuffer{
		OwnerSetSeqno: b.OwnerSetSeqno,
		ETA:           b.ETA,
		Authority:     b.Authority.Clone(),
		Executor:      b.Executor.Clone(),
		Wallet:        b.Wallet.Clone(),
		Bundles:       bundles,
	}
}

func (b *InstructionBuffer) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(b)
}

func (b *InstructionBuffer) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryBare(bz, b)
}

// IsFinalized returns true once the authority was cleared. A finalized
// buffer is read-only, only bundle execution flags still change.
func (b *InstructionBuffer) IsFinalized() bool {
	return b.Authority.IsEmpty()
}

// Finalize clears the authority, making the buffer immutable. This is
// irreversible.
func (b *InstructionBuffer) Finalize() {
	b.Authority = nil
}

// GetBundle returns a copy of the bundle at given index, or false when
// the index is past the staged length. Pure read, no side effects.
func (b *InstructionBuffer) GetBundle(idx int) (InstructionBundle, bool) {
	if idx < 0 || idx >= len(b.Bundles) {
		return InstructionBundle{}, false
	}
	return b.Bundles[idx].Copy(), true
}

// SetBundle overwrites the bundle at an existing index or appends when
// the index equals the current length. Bundles must be assembled
// contiguously, sparse indices are rejected.
func (b *InstructionBuffer) SetBundle(idx int, bundle InstructionBundle) error {
	if b.IsFinalized() {
		return errors.Wrap(ErrBufferFinalized, "set bundle")
	}
	switch {
	case idx >= 0 && idx < len(b.Bundles):
		b.Bundles[idx] = bundle.Copy()
	case idx == len(b.Bundles):
		b.Bundles = append(b.Bundles, bundle.Copy())
	default:
		return errors.Wrapf(ErrBufferBundleNotFound, "index %d with %d bundles staged", idx, len(b.Bundles))
	}
	return nil
}

// CheckBundleExecutable returns nil if the bundle at given index may be
// executed now, and the specific failure otherwise. The grace period is
// inherited from the wallet.
func (b *InstructionBuffer) CheckBundleExecutable(now vaultkit.UnixTime, w *SmartWallet, idx int) error {
	if !b.IsFinalized() {
		return errors.Wrap(errors.ErrState, "buffer is not finalized")
	}
	bundle, ok := b.GetBundle(idx)
	if !ok {
		return errors.Wrapf(ErrBufferBundleNotFound, "index %d with %d bundles staged", idx, len(b.Bundles))
	}
	if bundle.IsExecuted {
		return errors.Wrapf(ErrAlreadyExecuted, "bundle %d", idx)
	}
	if b.OwnerSetSeqno != w.OwnerSetSeqno {
		return errors.Wrapf(ErrStaleOwnerSet, "staged under seqno %d, wallet is at %d",
			b.OwnerSetSeqno, w.OwnerSetSeqno)
	}
	if b.ETA != NoETA {
		if now < b.ETA {
			return errors.Wrapf(ErrETANotReached, "eta %d, now %d", b.ETA, now)
		}
		if deadline := b.ETA.Add(w.GracePeriod.Duration()); now > deadline {
			return errors.Wrapf(ErrBundleExpired, "deadline %d, now %d", deadline, now)
		}
	}
	return nil
}

// MarkBundleExecuted flips the one-shot execution flag of the bundle at
// given index. Bundles execute independently, there is no ordering
// requirement between them.
func (b *InstructionBuffer) MarkBundleExecuted(idx int) error {
	if idx < 0 || idx >= len(b.Bundles) {
		return errors.Wrapf(ErrBufferBundleNotFound, "index %d with %d bundles staged", idx, len(b.Bundles))
	}
	if b.Bundles[idx].IsExecuted {
		return errors.Wrapf(ErrAlreadyExecuted, "bundle %d", idx)
	}
	b.Bundles[idx].IsExecuted = true
	return nil
}

// InstructionBundle is a group of instructions executed together, at
// most once.
type InstructionBundle struct {
	// IsExecuted is the one-shot execution flag.
	IsExecuted bool
	// Instructions executed, in order, when the bundle fires.
	Instructions []TXInstruction
}

func (b InstructionBundle) Copy() InstructionBundle {
	instructions := make([]TXInstruction, len(b.Instructions))
	for i, ins := range b.Instructions {
		instructions[i] = ins.Copy()
	}
	return InstructionBundle{
		IsExecuted:   b.IsExecuted,
		Instructions: instructions,
	}
}
