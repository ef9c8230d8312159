package smartwallet

import (
	"github.com/arx-one/vaultkit"
	"github.com/arx-one/vaultkit/errors"
)

// Routing paths of all messages handled by this package.
const (
	pathCreateWallet     = "smartwallet/create_wallet"
	pathSetOwners        = "smartwallet/set_owners"
	pathSetThreshold     = "smartwallet/set_threshold"
	pathProposeTx        = "smartwallet/propose_tx"
	pathApproveTx        = "smartwallet/approve_tx"
	pathUnapproveTx      = "smartwallet/unapprove_tx"
	pathExecuteTx        = "smartwallet/execute_tx"
	pathExecuteTxDerived = "smartwallet/execute_tx_derived"
	pathCreateBuffer     = "smartwallet/create_buffer"
	pathWriteBundle      = "smartwallet/write_bundle"
	pathFinalizeBuffer   = "smartwallet/finalize_buffer"
	pathExecuteBundle    = "smartwallet/execute_bundle"
	pathCreateSubaccount = "smartwallet/create_subaccount"
	pathInvokeSubaccount = "smartwallet/invoke_subaccount"
)

var (
	_ vaultkit.Msg = (*CreateWalletMsg)(nil)
	_ vaultkit.Msg = (*SetOwnersMsg)(nil)
	_ vaultkit.Msg = (*SetThresholdMsg)(nil)
	_ vaultkit.Msg = (*ProposeTxMsg)(nil)
	_ vaultkit.Msg = (*ApproveTxMsg)(nil)
	_ vaultkit.Msg = (*UnapproveTxMsg)(nil)
	_ vaultkit.Msg = (*ExecuteTxMsg)(nil)
	_ vaultkit.Msg = (*ExecuteTxDerivedMsg)(nil)
	_ vaultkit.Msg = (*CreateBufferMsg)(nil)
	_ vaultkit.Msg = (*WriteBundleMsg)(nil)
	_ vaultkit.Msg = (*FinalizeBufferMsg)(nil)
	_ vaultkit.Msg = (*ExecuteBundleMsg)(nil)
	_ vaultkit.Msg = (*CreateSubaccountMsg)(nil)
	_ vaultkit.Msg = (*InvokeSubaccountMsg)(nil)
)

// CreateWalletMsg creates a new wallet. The wallet address is derived
// from the base key, the sender only needs to know the base to address
// the wallet later.
type CreateWalletMsg struct {
	// Base key the wallet address is derived from.
	Base vaultkit.Address
	// MaxOwners reserves the owner list capacity for the lifetime of
	// the wallet.
	MaxOwners uint32
	// Owners is the initial owner set.
	Owners []vaultkit.Address
	// Threshold is the initial approval threshold.
	Threshold uint32
	// MinimumDelay enforced on every proposed ETA.
	MinimumDelay vaultkit.UnixDuration
	// GracePeriod after the ETA until execution expires.
	GracePeriod vaultkit.UnixDuration
}

func (m *CreateWalletMsg) Path() string {
	return pathCreateWallet
}

func (m *CreateWalletMsg) Validate() error {
	if err := m.Base.Validate(); err != nil {
		return errors.Wrap(err, "base")
	}
	switch n := len(m.Owners); {
	case n == 0:
		return errors.Wrap(errors.ErrMsg, "no owners")
	case n > int(m.MaxOwners):
		return errors.Wrap(errors.ErrMsg, "owner list exceeds reserved capacity")
	}
	if m.MaxOwners > maxOwnersAllowed {
		return errors.Wrapf(errors.ErrMsg, "too many owners, at most %d allowed", maxOwnersAllowed)
	}
	if err := validateOwners(errors.ErrMsg, m.Owners); err != nil {
		return err
	}
	if err := validateThreshold(m.Threshold, len(m.Owners)); err != nil {
		return err
	}
	if m.MinimumDelay < 0 {
		return errors.Wrap(errors.ErrMsg, "negative minimum delay")
	}
	if m.GracePeriod < 0 {
		return errors.Wrap(errors.ErrMsg, "negative grace period")
	}
	return nil
}

func (m *CreateWalletMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *CreateWalletMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryBare(bz, m)
}

// SetOwnersMsg replaces the owner set of a wallet. Only the wallet
// itself can authorize this, which means the change must go through the
// full approval process.
type SetOwnersMsg struct {
	// Wallet to mutate.
	Wallet vaultkit.Address
	// Owners is the replacement owner set.
	Owners []vaultkit.Address
}

func (m *SetOwnersMsg) Path() string {
	return pathSetOwners
}

func (m *SetOwnersMsg) Validate() error {
	if err := m.Wallet.Validate(); err != nil {
		return errors.Wrap(err, "wallet")
	}
	if len(m.Owners) == 0 {
		return errors.Wrap(errors.ErrMsg, "no owners")
	}
	return validateOwners(errors.ErrMsg, m.Owners)
}

func (m *SetOwnersMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *SetOwnersMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryBare(bz, m)
}

// SetThresholdMsg changes the approval threshold of a wallet. Only the
// wallet itself can authorize this.
type SetThresholdMsg struct {
	// Wallet to mutate.
	Wallet vaultkit.Address
	// Threshold is the replacement approval threshold.
	Threshold uint32
}

func (m *SetThresholdMsg) Path() string {
	return pathSetThreshold
}

func (m *SetThresholdMsg) Validate() error {
	if err := m.Wallet.Validate(); err != nil {
		return errors.Wrap(err, "wallet")
	}
	if m.Threshold < 1 {
		return errors.Wrap(ErrInvalidThreshold, "threshold must be greater than 0")
	}
	return nil
}

func (m *SetThresholdMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *SetThresholdMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryBare(bz, m)
}

// ProposeTxMsg proposes a new transaction on a wallet. The sender must
// be an owner. The new transaction carries no approvals, the proposer
// must cast theirs explicitly like everyone else.
type ProposeTxMsg struct {
	// Wallet to propose on.
	Wallet vaultkit.Address
	// Instructions executed when the transaction fires.
	Instructions []TXInstruction
	// ETA is the earliest execution time. Use NoETA to skip the
	// timelock, which is only allowed on wallets without a minimum
	// delay.
	ETA vaultkit.UnixTime
}

func (m *ProposeTxMsg) Path() string {
	return pathProposeTx
}

func (m *ProposeTxMsg) Validate() error {
	if err := m.Wallet.Validate(); err != nil {
		return errors.Wrap(err, "wallet")
	}
	if len(m.Instructions) == 0 {
		return errors.Wrap(errors.ErrMsg, "no instructions")
	}
	for i, ins := range m.Instructions {
		if err := ins.Validate(); err != nil {
			return errors.Wrapf(err, "instruction %d", i)
		}
	}
	if m.ETA != NoETA {
		if err := m.ETA.Validate(); err != nil {
			return errors.Wrap(err, "eta")
		}
	}
	return nil
}

func (m *ProposeTxMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *ProposeTxMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryBare(bz, m)
}

// ApproveTxMsg records the sender's approval on a transaction.
// Approving an already approved transaction is a no-op.
type ApproveTxMsg struct {
	// Wallet the transaction belongs to.
	Wallet vaultkit.Address
	// Index of the transaction.
	Index uint64
}

func (m *ApproveTxMsg) Path() string {
	return pathApproveTx
}

func (m *ApproveTxMsg) Validate() error {
	return errors.Wrap(m.Wallet.Validate(), "wallet")
}

func (m *ApproveTxMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *ApproveTxMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryBare(bz, m)
}

// UnapproveTxMsg withdraws the sender's approval from a transaction.
// Allowed any time before execution.
type UnapproveTxMsg struct {
	// Wallet the transaction belongs to.
	Wallet vaultkit.Address
	// Index of the transaction.
	Index uint64
}

func (m *UnapproveTxMsg) Path() string {
	return pathUnapproveTx
}

func (m *UnapproveTxMsg) Validate() error {
	return errors.Wrap(m.Wallet.Validate(), "wallet")
}

func (m *UnapproveTxMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *UnapproveTxMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryBare(bz, m)
}

// ExecuteTxMsg executes an approved transaction. The sender must be an
// owner under the current owner set.
type ExecuteTxMsg struct {
	// Wallet the transaction belongs to.
	Wallet vaultkit.Address
	// Index of the transaction.
	Index uint64
}

func (m *ExecuteTxMsg) Path() string {
	return pathExecuteTx
}

func (m *ExecuteTxMsg) Validate() error {
	return errors.Wrap(m.Wallet.Validate(), "wallet")
}

func (m *ExecuteTxMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *ExecuteTxMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryBare(bz, m)
}

// ExecuteTxDerivedMsg executes an approved transaction with the
// authority of a derived subaccount instead of the wallet itself. All
// quorum, staleness and timelock rules of ExecuteTxMsg apply unchanged,
// only the condition granted during dispatch differs.
type ExecuteTxDerivedMsg struct {
	// Wallet the transaction belongs to.
	Wallet vaultkit.Address
	// Index of the transaction.
	Index uint64
	// SubaccountIndex of the derived subaccount to act as. The
	// subaccount must be registered with the derived type.
	SubaccountIndex uint64
}

func (m *ExecuteTxDerivedMsg) Path() string {
	return pathExecuteTxDerived
}

func (m *ExecuteTxDerivedMsg) Validate() error {
	return errors.Wrap(m.Wallet.Validate(), "wallet")
}

func (m *ExecuteTxDerivedMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *ExecuteTxDerivedMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryBare(bz, m)
}

// CreateBufferMsg creates a new empty instruction buffer.
type CreateBufferMsg struct {
	// Wallet the buffer belongs to.
	Wallet vaultkit.Address
	// ETA is the earliest execution time of every bundle, or NoETA.
	ETA vaultkit.UnixTime
	// Authority allowed to stage bundles and finalize the buffer.
	Authority vaultkit.Address
	// Executor allowed to execute finalized bundles.
	Executor vaultkit.Address
}

func (m *CreateBufferMsg) Path() string {
	return pathCreateBuffer
}

func (m *CreateBufferMsg) Validate() error {
	if err := m.Wallet.Validate(); err != nil {
		return errors.Wrap(err, "wallet")
	}
	if err := m.Authority.Validate(); err != nil {
		return errors.Wrap(err, "authority")
	}
	if err := m.Executor.Validate(); err != nil {
		return errors.Wrap(err, "executor")
	}
	if m.ETA != NoETA {
		if err := m.ETA.Validate(); err != nil {
			return errors.Wrap(err, "eta")
		}
	}
	return nil
}

func (m *CreateBufferMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *CreateBufferMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryBare(bz, m)
}

// WriteBundleMsg stages a bundle on a buffer. Only the buffer authority
// can write and only before finalization.
type WriteBundleMsg struct {
	// BufferID of the buffer to write to.
	BufferID []byte
	// BundleIndex to write at. Must overwrite an existing bundle or
	// append directly after the last one.
	BundleIndex uint32
	// Instructions of the bundle.
	Instructions []TXInstruction
}

func (m *WriteBundleMsg) Path() string {
	return pathWriteBundle
}

func (m *WriteBundleMsg) Validate() error {
	if len(m.BufferID) == 0 {
		return errors.Wrap(errors.ErrMsg, "missing buffer id")
	}
	if len(m.Instructions) == 0 {
		return errors.Wrap(errors.ErrMsg, "no instructions")
	}
	for i, ins := range m.Instructions {
		if err := ins.Validate(); err != nil {
			return errors.Wrapf(err, "instruction %d", i)
		}
	}
	return nil
}

func (m *WriteBundleMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *WriteBundleMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryBare(bz, m)
}

// FinalizeBufferMsg makes a buffer immutable. Only the authority can
// finalize and the step cannot be undone.
type FinalizeBufferMsg struct {
	// BufferID of the buffer to finalize.
	BufferID []byte
}

func (m *FinalizeBufferMsg) Path() string {
	return pathFinalizeBuffer
}

func (m *FinalizeBufferMsg) Validate() error {
	if len(m.BufferID) == 0 {
		return errors.Wrap(errors.ErrMsg, "missing buffer id")
	}
	return nil
}

func (m *FinalizeBufferMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *FinalizeBufferMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryBare(bz, m)
}

// ExecuteBundleMsg executes a single staged bundle of a finalized
// buffer. Only the buffer executor can execute, each bundle at most
// once.
type ExecuteBundleMsg struct {
	// BufferID of the buffer.
	BufferID []byte
	// BundleIndex of the bundle to execute.
	BundleIndex uint32
}

func (m *ExecuteBundleMsg) Path() string {
	return pathExecuteBundle
}

func (m *ExecuteBundleMsg) Validate() error {
	if len(m.BufferID) == 0 {
		return errors.Wrap(errors.ErrMsg, "missing buffer id")
	}
	return nil
}

func (m *ExecuteBundleMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *ExecuteBundleMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryBare(bz, m)
}

// CreateSubaccountMsg registers a derived identity of a wallet. Any
// wallet owner can register, the record itself is immutable.
type CreateSubaccountMsg struct {
	// Wallet the subaccount belongs to.
	Wallet vaultkit.Address
	// Type of the subaccount.
	Type SubaccountType
	// Index of the subaccount.
	Index uint64
}

func (m *CreateSubaccountMsg) Path() string {
	return pathCreateSubaccount
}

func (m *CreateSubaccountMsg) Validate() error {
	if err := m.Wallet.Validate(); err != nil {
		return errors.Wrap(err, "wallet")
	}
	return errors.Wrap(m.Type.Validate(), "type")
}

func (m *CreateSubaccountMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *CreateSubaccountMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryBare(bz, m)
}

// InvokeSubaccountMsg executes instructions with the authority of an
// owner-invoker subaccount. The sender must be a current wallet owner.
// No quorum, no timelock: this is the fast path and it is only
// available on subaccounts explicitly registered as owner-invoker.
type InvokeSubaccountMsg struct {
	// Wallet the subaccount belongs to.
	Wallet vaultkit.Address
	// Index of the subaccount.
	Index uint64
	// Instructions executed with the subaccount's authority.
	Instructions []TXInstruction
}

func (m *InvokeSubaccountMsg) Path() string {
	return pathInvokeSubaccount
}

func (m *InvokeSubaccountMsg) Validate() error {
	if err := m.Wallet.Validate(); err != nil {
		return errors.Wrap(err, "wallet")
	}
	if len(m.Instructions) == 0 {
		return errors.Wrap(errors.ErrMsg, "no instructions")
	}
	for i, ins := range m.Instructions {
		if err := ins.Validate(); err != nil {
			return errors.Wrapf(err, "instruction %d", i)
		}
	}
	return nil
}

func (m *InvokeSubaccountMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *InvokeSubaccountMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryBare(bz, m)
}
