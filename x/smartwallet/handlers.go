package smartwallet

import (
	"github.com/arx-one/vaultkit"
	"github.com/arx-one/vaultkit/errors"
	"github.com/arx-one/vaultkit/orm"
	"github.com/arx-one/vaultkit/x"
	common "github.com/tendermint/tendermint/libs/common"
)

const (
	createWalletCost = 300
	updateWalletCost = 150
	proposeCost      = 200
	approveCost      = 50
	executeBaseCost  = 100
	executeInsCost   = 50
	createBufferCost = 150
	writeBundleCost  = 100
	subaccountCost   = 100
)

// RegisterRoutes will instantiate and register all handlers in this
// package. The authenticator should be the host authenticator chained
// with Authenticate, so that dispatched instructions can act with the
// authority this package grants.
func RegisterRoutes(r vaultkit.Registry, auth x.Authenticator, executor Executor) {
	wallets := NewWalletBucket()
	transactions := NewTransactionBucket()
	buffers := NewBufferBucket()
	subaccounts := NewSubaccountBucket()

	r.Handle(pathCreateWallet, CreateWalletHandler{auth: auth, wallets: wallets})
	r.Handle(pathSetOwners, SetOwnersHandler{auth: auth, wallets: wallets})
	r.Handle(pathSetThreshold, SetThresholdHandler{auth: auth, wallets: wallets})
	r.Handle(pathProposeTx, ProposeTxHandler{auth: auth, wallets: wallets, transactions: transactions})
	r.Handle(pathApproveTx, ApprovalHandler{auth: auth, wallets: wallets, transactions: transactions, approve: true})
	r.Handle(pathUnapproveTx, ApprovalHandler{auth: auth, wallets: wallets, transactions: transactions, approve: false})
	r.Handle(pathExecuteTx, ExecuteTxHandler{auth: auth, wallets: wallets, transactions: transactions, executor: executor})
	r.Handle(pathExecuteTxDerived, ExecuteTxDerivedHandler{auth: auth, wallets: wallets, transactions: transactions, subaccounts: subaccounts, executor: executor})
	r.Handle(pathCreateBuffer, CreateBufferHandler{auth: auth, wallets: wallets, buffers: buffers})
	r.Handle(pathWriteBundle, WriteBundleHandler{auth: auth, buffers: buffers})
	r.Handle(pathFinalizeBuffer, FinalizeBufferHandler{auth: auth, buffers: buffers})
	r.Handle(pathExecuteBundle, ExecuteBundleHandler{auth: auth, wallets: wallets, buffers: buffers, executor: executor})
	r.Handle(pathCreateSubaccount, CreateSubaccountHandler{auth: auth, wallets: wallets, subaccounts: subaccounts})
	r.Handle(pathInvokeSubaccount, InvokeSubaccountHandler{auth: auth, wallets: wallets, subaccounts: subaccounts, executor: executor})
}

// blockNow returns the current time as declared by the host for this
// operation.
func blockNow(ctx vaultkit.Context) (vaultkit.UnixTime, error) {
	t, err := vaultkit.BlockTime(ctx)
	if err != nil {
		return 0, err
	}
	return vaultkit.AsUnixTime(t), nil
}

// validateETA checks a proposed ETA against the wallet's minimum delay.
// A wallet with a minimum delay never accepts NoETA.
func validateETA(now, eta vaultkit.UnixTime, minDelay vaultkit.UnixDuration) error {
	if eta == NoETA {
		if minDelay > 0 {
			return errors.Wrap(ErrInvalidETA, "wallet enforces a minimum delay")
		}
		return nil
	}
	if earliest := now.Add(minDelay.Duration()); eta < earliest {
		return errors.Wrapf(ErrInvalidETA, "eta %d is before the earliest allowed %d", eta, earliest)
	}
	return nil
}

// authenticatedOwner returns the first signer that is a current owner
// of the wallet, failing with ErrInvalidOwner if there is none.
func authenticatedOwner(ctx vaultkit.Context, auth x.Authenticator, w *SmartWallet) (int, vaultkit.Address, error) {
	for i, o := range w.Owners {
		if auth.HasAddress(ctx, o) {
			return i, o, nil
		}
	}
	return 0, nil, errors.Wrap(ErrInvalidOwner, "sender is not an owner")
}

// dispatch executes all instructions in order with the given authority
// granted. Partial signer conditions are granted per instruction. Any
// failure aborts the batch, the caller must not persist any state
// written before the failure.
func dispatch(ctx vaultkit.Context, db vaultkit.KVStore, executor Executor, wallet vaultkit.Address, authority vaultkit.Condition, instructions []TXInstruction) error {
	ctx = withCondition(ctx, authority)
	for i, ins := range instructions {
		insCtx := ctx
		for _, ps := range ins.PartialSigners {
			insCtx = withCondition(insCtx, PartialSignerCondition(wallet, ps.Index, ps.Nonce))
		}
		if err := executor.Execute(insCtx, db, ins); err != nil {
			return errors.Wrapf(err, "instruction %d", i)
		}
	}
	return nil
}

// CreateWalletHandler creates wallets.
type CreateWalletHandler struct {
	auth    x.Authenticator
	wallets WalletBucket
}

var _ vaultkit.Handler = CreateWalletHandler{}

func (h CreateWalletHandler) Check(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &vaultkit.CheckResult{GasAllocated: createWalletCost}, nil
}

func (h CreateWalletHandler) Deliver(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	addr, nonce, err := DeriveWallet(msg.Base)
	if err != nil {
		return nil, err
	}
	if h.wallets.Has(db, addr) {
		return nil, errors.Wrapf(errors.ErrDuplicate, "wallet %s", addr)
	}

	wallet := &SmartWallet{
		Base:         msg.Base,
		Nonce:        nonce,
		MaxOwners:    msg.MaxOwners,
		Threshold:    msg.Threshold,
		MinimumDelay: msg.MinimumDelay,
		GracePeriod:  msg.GracePeriod,
		Owners:       msg.Owners,
	}
	if err := h.wallets.Save(db, wallet); err != nil {
		return nil, err
	}

	vaultkit.GetLogger(ctx).Info("created wallet",
		"wallet", addr, "owners", len(wallet.Owners), "threshold", wallet.Threshold)
	return &vaultkit.DeliverResult{Data: addr}, nil
}

func (h CreateWalletHandler) validate(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*CreateWalletMsg, error) {
	var msg CreateWalletMsg
	if err := vaultkit.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SetOwnersHandler replaces the owner set of a wallet. Only the wallet
// condition itself can authorize this, so the message must come in
// through transaction execution.
type SetOwnersHandler struct {
	auth    x.Authenticator
	wallets WalletBucket
}

var _ vaultkit.Handler = SetOwnersHandler{}

func (h SetOwnersHandler) Check(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &vaultkit.CheckResult{GasAllocated: updateWalletCost}, nil
}

func (h SetOwnersHandler) Deliver(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.DeliverResult, error) {
	msg, wallet, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := wallet.SetOwners(msg.Owners); err != nil {
		return nil, err
	}
	if err := h.wallets.Save(db, wallet); err != nil {
		return nil, err
	}
	vaultkit.GetLogger(ctx).Info("replaced owner set",
		"wallet", msg.Wallet, "owners", len(wallet.Owners), "seqno", wallet.OwnerSetSeqno)
	return &vaultkit.DeliverResult{}, nil
}

func (h SetOwnersHandler) validate(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*SetOwnersMsg, *SmartWallet, error) {
	var msg SetOwnersMsg
	if err := vaultkit.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	wallet, err := h.wallets.GetWallet(db, msg.Wallet)
	if err != nil {
		return nil, nil, err
	}
	if !h.auth.HasAddress(ctx, msg.Wallet) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "wallet authority required")
	}
	return &msg, wallet, nil
}

// SetThresholdHandler changes the approval threshold of a wallet. Only
// the wallet condition itself can authorize this.
type SetThresholdHandler struct {
	auth    x.Authenticator
	wallets WalletBucket
}

var _ vaultkit.Handler = SetThresholdHandler{}

func (h SetThresholdHandler) Check(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &vaultkit.CheckResult{GasAllocated: updateWalletCost}, nil
}

func (h SetThresholdHandler) Deliver(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.DeliverResult, error) {
	msg, wallet, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := wallet.SetThreshold(msg.Threshold); err != nil {
		return nil, err
	}
	if err := h.wallets.Save(db, wallet); err != nil {
		return nil, err
	}
	vaultkit.GetLogger(ctx).Info("changed threshold",
		"wallet", msg.Wallet, "threshold", wallet.Threshold, "seqno", wallet.OwnerSetSeqno)
	return &vaultkit.DeliverResult{}, nil
}

func (h SetThresholdHandler) validate(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*SetThresholdMsg, *SmartWallet, error) {
	var msg SetThresholdMsg
	if err := vaultkit.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	wallet, err := h.wallets.GetWallet(db, msg.Wallet)
	if err != nil {
		return nil, nil, err
	}
	if !h.auth.HasAddress(ctx, msg.Wallet) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "wallet authority required")
	}
	return &msg, wallet, nil
}

// ProposeTxHandler creates new transactions. A new transaction starts
// with an all-false approval bitmap.
type ProposeTxHandler struct {
	auth         x.Authenticator
	wallets      WalletBucket
	transactions TransactionBucket
}

var _ vaultkit.Handler = ProposeTxHandler{}

func (h ProposeTxHandler) Check(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &vaultkit.CheckResult{GasAllocated: proposeCost}, nil
}

func (h ProposeTxHandler) Deliver(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.DeliverResult, error) {
	msg, wallet, proposerIdx, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	instructions := make([]TXInstruction, len(msg.Instructions))
	for i, ins := range msg.Instructions {
		instructions[i] = ins.Copy()
	}
	// The proposer gets no implicit approval. Every approval, the
	// proposer's included, must be cast explicitly.
	t := &Transaction{
		Wallet:        msg.Wallet,
		Index:         wallet.NextIndex(),
		Proposer:      wallet.Owners[proposerIdx],
		Instructions:  instructions,
		Approvals:     make([]bool, len(wallet.Owners)),
		OwnerSetSeqno: wallet.OwnerSetSeqno,
		ETA:           msg.ETA,
		ExecutedAt:    NotExecuted,
	}

	if err := h.transactions.Save(db, t); err != nil {
		return nil, err
	}
	// The wallet carries the transaction counter.
	if err := h.wallets.Save(db, wallet); err != nil {
		return nil, err
	}

	vaultkit.GetLogger(ctx).Info("proposed transaction",
		"wallet", msg.Wallet, "index", t.Index, "eta", t.ETA)
	return &vaultkit.DeliverResult{Data: orm.EncodeSequence(int64(t.Index))}, nil
}

func (h ProposeTxHandler) validate(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*ProposeTxMsg, *SmartWallet, int, error) {
	var msg ProposeTxMsg
	if err := vaultkit.LoadMsg(tx, &msg); err != nil {
		return nil, nil, 0, err
	}
	wallet, err := h.wallets.GetWallet(db, msg.Wallet)
	if err != nil {
		return nil, nil, 0, err
	}
	proposerIdx, _, err := authenticatedOwner(ctx, h.auth, wallet)
	if err != nil {
		return nil, nil, 0, err
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, nil, 0, err
	}
	if err := validateETA(now, msg.ETA, wallet.MinimumDelay); err != nil {
		return nil, nil, 0, err
	}
	return &msg, wallet, proposerIdx, nil
}

// ApprovalHandler records or withdraws an owner's approval on a
// transaction. The same handler serves both message types, selected by
// the approve flag at registration time.
type ApprovalHandler struct {
	auth         x.Authenticator
	wallets      WalletBucket
	transactions TransactionBucket
	approve      bool
}

var _ vaultkit.Handler = ApprovalHandler{}

func (h ApprovalHandler) Check(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &vaultkit.CheckResult{GasAllocated: approveCost}, nil
}

func (h ApprovalHandler) Deliver(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.DeliverResult, error) {
	t, wallet, ownerIdx, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if h.approve {
		err = t.Approve(ownerIdx)
	} else {
		err = t.Unapprove(ownerIdx)
	}
	if err != nil {
		return nil, err
	}
	if err := h.transactions.Save(db, t); err != nil {
		return nil, err
	}
	vaultkit.GetLogger(ctx).Debug("updated approval",
		"wallet", t.Wallet, "index", t.Index, "owner", wallet.Owners[ownerIdx],
		"approve", h.approve, "approvals", t.ApprovalCount())
	return &vaultkit.DeliverResult{}, nil
}

func (h ApprovalHandler) validate(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*Transaction, *SmartWallet, int, error) {
	var (
		wallet vaultkit.Address
		index  uint64
	)
	if h.approve {
		var msg ApproveTxMsg
		if err := vaultkit.LoadMsg(tx, &msg); err != nil {
			return nil, nil, 0, err
		}
		wallet, index = msg.Wallet, msg.Index
	} else {
		var msg UnapproveTxMsg
		if err := vaultkit.LoadMsg(tx, &msg); err != nil {
			return nil, nil, 0, err
		}
		wallet, index = msg.Wallet, msg.Index
	}

	w, err := h.wallets.GetWallet(db, wallet)
	if err != nil {
		return nil, nil, 0, err
	}
	ownerIdx, _, err := authenticatedOwner(ctx, h.auth, w)
	if err != nil {
		return nil, nil, 0, err
	}
	t, err := h.transactions.GetTransaction(db, wallet, index)
	if err != nil {
		return nil, nil, 0, err
	}
	// An approval on a superseded owner set would never count, reject
	// it outright. Withdrawing is harmless and always allowed.
	if h.approve && t.OwnerSetSeqno != w.OwnerSetSeqno {
		return nil, nil, 0, errors.Wrapf(ErrStaleOwnerSet, "proposed under seqno %d, wallet is at %d",
			t.OwnerSetSeqno, w.OwnerSetSeqno)
	}
	return t, w, ownerIdx, nil
}

// ExecuteTxHandler executes approved transactions.
type ExecuteTxHandler struct {
	auth         x.Authenticator
	wallets      WalletBucket
	transactions TransactionBucket
	executor     Executor
}

var _ vaultkit.Handler = ExecuteTxHandler{}

func (h ExecuteTxHandler) Check(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.CheckResult, error) {
	t, _, _, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	gas := int64(executeBaseCost + len(t.Instructions)*executeInsCost)
	return &vaultkit.CheckResult{GasAllocated: gas}, nil
}

func (h ExecuteTxHandler) Deliver(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.DeliverResult, error) {
	t, wallet, executorAddr, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, err
	}

	authority := WalletCondition(wallet.Base, wallet.Nonce)
	if err := dispatch(ctx, db, h.executor, t.Wallet, authority, t.Instructions); err != nil {
		return nil, err
	}

	if err := t.MarkExecuted(executorAddr, now); err != nil {
		return nil, err
	}
	if err := h.transactions.Save(db, t); err != nil {
		return nil, err
	}

	vaultkit.GetLogger(ctx).Info("executed transaction",
		"wallet", t.Wallet, "index", t.Index, "executor", executorAddr)
	res := &vaultkit.DeliverResult{
		Tags: []common.KVPair{
			{Key: []byte("smartwallet"), Value: []byte(t.Wallet.String())},
			{Key: []byte("action"), Value: []byte("execute_tx")},
		},
	}
	return res, nil
}

func (h ExecuteTxHandler) validate(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*Transaction, *SmartWallet, vaultkit.Address, error) {
	var msg ExecuteTxMsg
	if err := vaultkit.LoadMsg(tx, &msg); err != nil {
		return nil, nil, nil, err
	}
	wallet, err := h.wallets.GetWallet(db, msg.Wallet)
	if err != nil {
		return nil, nil, nil, err
	}
	_, executorAddr, err := authenticatedOwner(ctx, h.auth, wallet)
	if err != nil {
		return nil, nil, nil, err
	}
	t, err := h.transactions.GetTransaction(db, msg.Wallet, msg.Index)
	if err != nil {
		return nil, nil, nil, err
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := t.CheckExecutable(now, wallet); err != nil {
		return nil, nil, nil, err
	}
	return t, wallet, executorAddr, nil
}

// ExecuteTxDerivedHandler executes approved transactions with the
// authority of a derived subaccount. Derived subaccounts have no fast
// path: the full approval process gates every dispatch, only the
// granted condition differs from a plain execution.
type ExecuteTxDerivedHandler struct {
	auth         x.Authenticator
	wallets      WalletBucket
	transactions TransactionBucket
	subaccounts  SubaccountBucket
	executor     Executor
}

var _ vaultkit.Handler = ExecuteTxDerivedHandler{}

func (h ExecuteTxDerivedHandler) Check(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.CheckResult, error) {
	_, t, _, _, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	gas := int64(executeBaseCost + len(t.Instructions)*executeInsCost)
	return &vaultkit.CheckResult{GasAllocated: gas}, nil
}

func (h ExecuteTxDerivedHandler) Deliver(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.DeliverResult, error) {
	msg, t, _, executorAddr, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, err
	}

	authority := SubaccountCondition(msg.Wallet, SubaccountDerived, msg.SubaccountIndex)
	if err := dispatch(ctx, db, h.executor, t.Wallet, authority, t.Instructions); err != nil {
		return nil, err
	}

	if err := t.MarkExecuted(executorAddr, now); err != nil {
		return nil, err
	}
	if err := h.transactions.Save(db, t); err != nil {
		return nil, err
	}

	vaultkit.GetLogger(ctx).Info("executed transaction as derived subaccount",
		"wallet", t.Wallet, "index", t.Index, "subaccount", authority.Address(), "executor", executorAddr)
	res := &vaultkit.DeliverResult{
		Tags: []common.KVPair{
			{Key: []byte("smartwallet"), Value: []byte(t.Wallet.String())},
			{Key: []byte("action"), Value: []byte("execute_tx_derived")},
		},
	}
	return res, nil
}

func (h ExecuteTxDerivedHandler) validate(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*ExecuteTxDerivedMsg, *Transaction, *SmartWallet, vaultkit.Address, error) {
	var msg ExecuteTxDerivedMsg
	if err := vaultkit.LoadMsg(tx, &msg); err != nil {
		return nil, nil, nil, nil, err
	}
	wallet, err := h.wallets.GetWallet(db, msg.Wallet)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	_, executorAddr, err := authenticatedOwner(ctx, h.auth, wallet)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	// Acting as a derived identity requires its registration record.
	addr := SubaccountAddress(msg.Wallet, SubaccountDerived, msg.SubaccountIndex)
	info, err := h.subaccounts.GetSubaccount(db, addr)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if info.Type != SubaccountDerived {
		return nil, nil, nil, nil, errors.Wrap(errors.ErrUnauthorized, "subaccount is not derived")
	}
	t, err := h.transactions.GetTransaction(db, msg.Wallet, msg.Index)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := t.CheckExecutable(now, wallet); err != nil {
		return nil, nil, nil, nil, err
	}
	return &msg, t, wallet, executorAddr, nil
}

// CreateBufferHandler creates instruction buffers.
type CreateBufferHandler struct {
	auth    x.Authenticator
	wallets WalletBucket
	buffers BufferBucket
}

var _ vaultkit.Handler = CreateBufferHandler{}

func (h CreateBufferHandler) Check(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &vaultkit.CheckResult{GasAllocated: createBufferCost}, nil
}

func (h CreateBufferHandler) Deliver(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.DeliverResult, error) {
	msg, wallet, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	buf := &InstructionBuffer{
		OwnerSetSeqno: wallet.OwnerSetSeqno,
		ETA:           msg.ETA,
		Authority:     msg.Authority,
		Executor:      msg.Executor,
		Wallet:        msg.Wallet,
	}
	id, err := h.buffers.Create(db, buf)
	if err != nil {
		return nil, err
	}
	vaultkit.GetLogger(ctx).Info("created buffer",
		"wallet", msg.Wallet, "buffer", id, "eta", msg.ETA)
	return &vaultkit.DeliverResult{Data: id}, nil
}

func (h CreateBufferHandler) validate(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*CreateBufferMsg, *SmartWallet, error) {
	var msg CreateBufferMsg
	if err := vaultkit.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	wallet, err := h.wallets.GetWallet(db, msg.Wallet)
	if err != nil {
		return nil, nil, err
	}
	if !h.auth.HasAddress(ctx, msg.Authority) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "buffer authority must sign")
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := validateETA(now, msg.ETA, wallet.MinimumDelay); err != nil {
		return nil, nil, err
	}
	return &msg, wallet, nil
}

// WriteBundleHandler stages bundles on a buffer.
type WriteBundleHandler struct {
	auth    x.Authenticator
	buffers BufferBucket
}

var _ vaultkit.Handler = WriteBundleHandler{}

func (h WriteBundleHandler) Check(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &vaultkit.CheckResult{GasAllocated: writeBundleCost}, nil
}

func (h WriteBundleHandler) Deliver(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.DeliverResult, error) {
	msg, buf, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	bundle := InstructionBundle{Instructions: msg.Instructions}
	if err := buf.SetBundle(int(msg.BundleIndex), bundle); err != nil {
		return nil, err
	}
	if err := h.buffers.Save(db, msg.BufferID, buf); err != nil {
		return nil, err
	}
	vaultkit.GetLogger(ctx).Debug("staged bundle",
		"buffer", msg.BufferID, "bundle", msg.BundleIndex, "staged", len(buf.Bundles))
	return &vaultkit.DeliverResult{}, nil
}

func (h WriteBundleHandler) validate(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*WriteBundleMsg, *InstructionBuffer, error) {
	var msg WriteBundleMsg
	if err := vaultkit.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	buf, err := h.buffers.GetBuffer(db, msg.BufferID)
	if err != nil {
		return nil, nil, err
	}
	if buf.IsFinalized() {
		return nil, nil, errors.Wrap(ErrBufferFinalized, "write bundle")
	}
	if !h.auth.HasAddress(ctx, buf.Authority) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "buffer authority must sign")
	}
	return &msg, buf, nil
}

// FinalizeBufferHandler makes buffers immutable.
type FinalizeBufferHandler struct {
	auth    x.Authenticator
	buffers BufferBucket
}

var _ vaultkit.Handler = FinalizeBufferHandler{}

func (h FinalizeBufferHandler) Check(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &vaultkit.CheckResult{GasAllocated: writeBundleCost}, nil
}

func (h FinalizeBufferHandler) Deliver(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.DeliverResult, error) {
	msg, buf, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	buf.Finalize()
	if err := h.buffers.Save(db, msg.BufferID, buf); err != nil {
		return nil, err
	}
	vaultkit.GetLogger(ctx).Info("finalized buffer",
		"buffer", msg.BufferID, "bundles", len(buf.Bundles))
	return &vaultkit.DeliverResult{}, nil
}

func (h FinalizeBufferHandler) validate(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*FinalizeBufferMsg, *InstructionBuffer, error) {
	var msg FinalizeBufferMsg
	if err := vaultkit.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	buf, err := h.buffers.GetBuffer(db, msg.BufferID)
	if err != nil {
		return nil, nil, err
	}
	if buf.IsFinalized() {
		return nil, nil, errors.Wrap(ErrBufferFinalized, "already finalized")
	}
	if !h.auth.HasAddress(ctx, buf.Authority) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "buffer authority must sign")
	}
	return &msg, buf, nil
}

// ExecuteBundleHandler executes staged bundles of finalized buffers.
type ExecuteBundleHandler struct {
	auth     x.Authenticator
	wallets  WalletBucket
	buffers  BufferBucket
	executor Executor
}

var _ vaultkit.Handler = ExecuteBundleHandler{}

func (h ExecuteBundleHandler) Check(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.CheckResult, error) {
	_, _, bundle, _, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	gas := int64(executeBaseCost + len(bundle.Instructions)*executeInsCost)
	return &vaultkit.CheckResult{GasAllocated: gas}, nil
}

func (h ExecuteBundleHandler) Deliver(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.DeliverResult, error) {
	msg, buf, bundle, wallet, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	authority := WalletCondition(wallet.Base, wallet.Nonce)
	if err := dispatch(ctx, db, h.executor, buf.Wallet, authority, bundle.Instructions); err != nil {
		return nil, err
	}

	if err := buf.MarkBundleExecuted(int(msg.BundleIndex)); err != nil {
		return nil, err
	}
	if err := h.buffers.Save(db, msg.BufferID, buf); err != nil {
		return nil, err
	}

	vaultkit.GetLogger(ctx).Info("executed bundle",
		"wallet", buf.Wallet, "buffer", msg.BufferID, "bundle", msg.BundleIndex)
	res := &vaultkit.DeliverResult{
		Tags: []common.KVPair{
			{Key: []byte("smartwallet"), Value: []byte(buf.Wallet.String())},
			{Key: []byte("action"), Value: []byte("execute_bundle")},
		},
	}
	return res, nil
}

func (h ExecuteBundleHandler) validate(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*ExecuteBundleMsg, *InstructionBuffer, InstructionBundle, *SmartWallet, error) {
	var msg ExecuteBundleMsg
	if err := vaultkit.LoadMsg(tx, &msg); err != nil {
		return nil, nil, InstructionBundle{}, nil, err
	}
	buf, err := h.buffers.GetBuffer(db, msg.BufferID)
	if err != nil {
		return nil, nil, InstructionBundle{}, nil, err
	}
	if !h.auth.HasAddress(ctx, buf.Executor) {
		return nil, nil, InstructionBundle{}, nil, errors.Wrap(errors.ErrUnauthorized, "buffer executor must sign")
	}
	wallet, err := h.wallets.GetWallet(db, buf.Wallet)
	if err != nil {
		return nil, nil, InstructionBundle{}, nil, err
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, nil, InstructionBundle{}, nil, err
	}
	if err := buf.CheckBundleExecutable(now, wallet, int(msg.BundleIndex)); err != nil {
		return nil, nil, InstructionBundle{}, nil, err
	}
	bundle, _ := buf.GetBundle(int(msg.BundleIndex))
	return &msg, buf, bundle, wallet, nil
}

// CreateSubaccountHandler registers derived identities.
type CreateSubaccountHandler struct {
	auth        x.Authenticator
	wallets     WalletBucket
	subaccounts SubaccountBucket
}

var _ vaultkit.Handler = CreateSubaccountHandler{}

func (h CreateSubaccountHandler) Check(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &vaultkit.CheckResult{GasAllocated: subaccountCost}, nil
}

func (h CreateSubaccountHandler) Deliver(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	addr := SubaccountAddress(msg.Wallet, msg.Type, msg.Index)
	if h.subaccounts.Has(db, addr) {
		return nil, errors.Wrapf(errors.ErrDuplicate, "subaccount %s", addr)
	}
	info := &SubaccountInfo{
		Wallet: msg.Wallet,
		Type:   msg.Type,
		Index:  msg.Index,
	}
	if err := h.subaccounts.Save(db, info); err != nil {
		return nil, err
	}
	vaultkit.GetLogger(ctx).Info("created subaccount",
		"wallet", msg.Wallet, "subaccount", addr, "type", msg.Type)
	return &vaultkit.DeliverResult{Data: addr}, nil
}

func (h CreateSubaccountHandler) validate(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*CreateSubaccountMsg, error) {
	var msg CreateSubaccountMsg
	if err := vaultkit.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	wallet, err := h.wallets.GetWallet(db, msg.Wallet)
	if err != nil {
		return nil, err
	}
	if _, _, err := authenticatedOwner(ctx, h.auth, wallet); err != nil {
		return nil, err
	}
	return &msg, nil
}

// InvokeSubaccountHandler executes instructions with the authority of
// an owner-invoker subaccount, without quorum or timelock.
type InvokeSubaccountHandler struct {
	auth        x.Authenticator
	wallets     WalletBucket
	subaccounts SubaccountBucket
	executor    Executor
}

var _ vaultkit.Handler = InvokeSubaccountHandler{}

func (h InvokeSubaccountHandler) Check(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.CheckResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	gas := int64(executeBaseCost + len(msg.Instructions)*executeInsCost)
	return &vaultkit.CheckResult{GasAllocated: gas}, nil
}

func (h InvokeSubaccountHandler) Deliver(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	authority := SubaccountCondition(msg.Wallet, SubaccountOwnerInvoker, msg.Index)
	if err := dispatch(ctx, db, h.executor, msg.Wallet, authority, msg.Instructions); err != nil {
		return nil, err
	}

	vaultkit.GetLogger(ctx).Info("invoked subaccount",
		"wallet", msg.Wallet, "subaccount", authority.Address(), "index", msg.Index)
	res := &vaultkit.DeliverResult{
		Tags: []common.KVPair{
			{Key: []byte("smartwallet"), Value: []byte(msg.Wallet.String())},
			{Key: []byte("action"), Value: []byte("invoke_subaccount")},
		},
	}
	return res, nil
}

func (h InvokeSubaccountHandler) validate(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*InvokeSubaccountMsg, error) {
	var msg InvokeSubaccountMsg
	if err := vaultkit.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	wallet, err := h.wallets.GetWallet(db, msg.Wallet)
	if err != nil {
		return nil, err
	}
	if _, _, err := authenticatedOwner(ctx, h.auth, wallet); err != nil {
		return nil, err
	}
	addr := SubaccountAddress(msg.Wallet, SubaccountOwnerInvoker, msg.Index)
	info, err := h.subaccounts.GetSubaccount(db, addr)
	if err != nil {
		return nil, err
	}
	// The address namespace already separates the types, but the
	// record is the source of truth.
	if info.Type != SubaccountOwnerInvoker {
		return nil, errors.Wrap(errors.ErrUnauthorized, "subaccount is not owner-invoker")
	}
	return &msg, nil
}
