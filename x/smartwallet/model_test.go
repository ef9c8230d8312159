package smartwallet

import (
	"testing"
	"time"

	"github.com/arx-one/vaultkit"
	"github.com/arx-one/vaultkit/errors"
	"github.com/arx-one/vaultkit/vaultkittest"
	"github.com/arx-one/vaultkit/vaultkittest/assert"
)

func newTestWallet(t testing.TB, numOwners int, threshold uint32) *SmartWallet {
	t.Helper()
	owners := make([]vaultkit.Address, numOwners)
	for i := range owners {
		owners[i] = vaultkittest.NewAddress()
	}
	w := &SmartWallet{
		Base:         vaultkittest.NewAddress(),
		MaxOwners:    uint32(numOwners) + 2,
		Threshold:    threshold,
		MinimumDelay: 0,
		GracePeriod:  vaultkit.AsUnixDuration(time.Hour),
		Owners:       owners,
	}
	_, nonce, err := DeriveWallet(w.Base)
	assert.Nil(t, err)
	w.Nonce = nonce
	assert.Nil(t, w.Validate())
	return w
}

func newTestTransaction(w *SmartWallet, eta vaultkit.UnixTime) *Transaction {
	return &Transaction{
		Wallet:        WalletAddress(w.Base, w.Nonce),
		Index:         w.NextIndex(),
		Proposer:      w.Owners[0],
		Instructions:  []TXInstruction{{ProgramID: vaultkittest.NewAddress()}},
		Approvals:     make([]bool, len(w.Owners)),
		OwnerSetSeqno: w.OwnerSetSeqno,
		ETA:           eta,
		ExecutedAt:    NotExecuted,
	}
}

func TestSmartWalletValidate(t *testing.T) {
	cases := map[string]struct {
		mutate  func(w *SmartWallet)
		wantErr *errors.Error
	}{
		"valid wallet": {
			mutate:  func(w *SmartWallet) {},
			wantErr: nil,
		},
		"no owners": {
			mutate:  func(w *SmartWallet) { w.Owners = nil },
			wantErr: errors.ErrModel,
		},
		"duplicate owner": {
			mutate:  func(w *SmartWallet) { w.Owners[1] = w.Owners[0] },
			wantErr: ErrDuplicateOwner,
		},
		"owner list over capacity": {
			mutate:  func(w *SmartWallet) { w.MaxOwners = 1 },
			wantErr: errors.ErrModel,
		},
		"capacity over global limit": {
			mutate:  func(w *SmartWallet) { w.MaxOwners = maxOwnersAllowed + 1 },
			wantErr: errors.ErrModel,
		},
		"zero threshold": {
			mutate:  func(w *SmartWallet) { w.Threshold = 0 },
			wantErr: ErrInvalidThreshold,
		},
		"threshold above owner count": {
			mutate:  func(w *SmartWallet) { w.Threshold = 4 },
			wantErr: ErrInvalidThreshold,
		},
		"invalid owner address": {
			mutate:  func(w *SmartWallet) { w.Owners[0] = []byte("too short") },
			wantErr: errors.ErrInput,
		},
		"negative grace period": {
			mutate:  func(w *SmartWallet) { w.GracePeriod = -1 },
			wantErr: errors.ErrModel,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			w := newTestWallet(t, 3, 2)
			tc.mutate(w)
			assert.IsErr(t, tc.wantErr, w.Validate())
		})
	}
}

func TestSmartWalletSetOwnersBumpsSeqno(t *testing.T) {
	w := newTestWallet(t, 3, 2)
	assert.Equal(t, uint32(0), w.OwnerSetSeqno)

	owners := []vaultkit.Address{
		vaultkittest.NewAddress(),
		vaultkittest.NewAddress(),
		vaultkittest.NewAddress(),
	}
	assert.Nil(t, w.SetOwners(owners))
	assert.Equal(t, uint32(1), w.OwnerSetSeqno)

	// Setting the identical list again must still bump the seqno. The
	// version is compared by value, not by content.
	same := make([]vaultkit.Address, len(owners))
	copy(same, owners)
	assert.Nil(t, w.SetOwners(same))
	assert.Equal(t, uint32(2), w.OwnerSetSeqno)
}

func TestSmartWalletSetOwnersRejected(t *testing.T) {
	cases := map[string]struct {
		owners  func(w *SmartWallet) []vaultkit.Address
		wantErr *errors.Error
	}{
		"empty list": {
			owners:  func(w *SmartWallet) []vaultkit.Address { return nil },
			wantErr: errors.ErrMsg,
		},
		"over capacity": {
			owners: func(w *SmartWallet) []vaultkit.Address {
				owners := make([]vaultkit.Address, w.MaxOwners+1)
				for i := range owners {
					owners[i] = vaultkittest.NewAddress()
				}
				return owners
			},
			wantErr: errors.ErrMsg,
		},
		"duplicate": {
			owners: func(w *SmartWallet) []vaultkit.Address {
				a := vaultkittest.NewAddress()
				return []vaultkit.Address{a, a}
			},
			wantErr: ErrDuplicateOwner,
		},
		"threshold unsatisfiable": {
			owners: func(w *SmartWallet) []vaultkit.Address {
				// Threshold is 2, a single owner cannot satisfy it.
				return []vaultkit.Address{vaultkittest.NewAddress()}
			},
			wantErr: ErrInvalidThreshold,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			w := newTestWallet(t, 3, 2)
			seqno := w.OwnerSetSeqno
			assert.IsErr(t, tc.wantErr, w.SetOwners(tc.owners(w)))
			// A rejected change must not bump the version.
			assert.Equal(t, seqno, w.OwnerSetSeqno)
		})
	}
}

func TestSmartWalletSetThreshold(t *testing.T) {
	w := newTestWallet(t, 3, 2)

	assert.Nil(t, w.SetThreshold(3))
	assert.Equal(t, uint32(3), w.Threshold)
	assert.Equal(t, uint32(1), w.OwnerSetSeqno)

	assert.IsErr(t, ErrInvalidThreshold, w.SetThreshold(0))
	assert.IsErr(t, ErrInvalidThreshold, w.SetThreshold(4))
	// Rejected changes must not bump the version.
	assert.Equal(t, uint32(1), w.OwnerSetSeqno)
}

func TestSmartWalletOwnerIndex(t *testing.T) {
	w := newTestWallet(t, 3, 2)

	idx, err := w.RequireOwnerIndex(w.Owners[2])
	assert.Nil(t, err)
	assert.Equal(t, 2, idx)

	_, err = w.RequireOwnerIndex(vaultkittest.NewAddress())
	assert.IsErr(t, ErrInvalidOwner, err)
}

func TestTransactionApprovals(t *testing.T) {
	w := newTestWallet(t, 3, 2)
	tx := newTestTransaction(w, NoETA)

	assert.Nil(t, tx.Approve(0))
	assert.Equal(t, 1, tx.ApprovalCount())

	// Re-approval is idempotent.
	assert.Nil(t, tx.Approve(0))
	assert.Equal(t, 1, tx.ApprovalCount())

	assert.Nil(t, tx.Approve(1))
	assert.Equal(t, 2, tx.ApprovalCount())

	assert.Nil(t, tx.Unapprove(1))
	assert.Equal(t, 1, tx.ApprovalCount())

	assert.IsErr(t, errors.ErrHuman, tx.Approve(5))

	assert.Nil(t, tx.MarkExecuted(w.Owners[0], 100))
	assert.IsErr(t, ErrAlreadyExecuted, tx.Approve(1))
	assert.IsErr(t, ErrAlreadyExecuted, tx.Unapprove(0))
}

func TestTransactionCheckExecutable(t *testing.T) {
	const now vaultkit.UnixTime = 10000

	cases := map[string]struct {
		prepare func(t testing.TB, w *SmartWallet, tx *Transaction)
		wantErr *errors.Error
	}{
		"executable with quorum and no timelock": {
			prepare: func(t testing.TB, w *SmartWallet, tx *Transaction) {
				assert.Nil(t, tx.Approve(0))
				assert.Nil(t, tx.Approve(1))
			},
			wantErr: nil,
		},
		"threshold not met": {
			prepare: func(t testing.TB, w *SmartWallet, tx *Transaction) {
				assert.Nil(t, tx.Approve(0))
			},
			wantErr: ErrThresholdNotMet,
		},
		"already executed": {
			prepare: func(t testing.TB, w *SmartWallet, tx *Transaction) {
				assert.Nil(t, tx.Approve(0))
				assert.Nil(t, tx.Approve(1))
				assert.Nil(t, tx.MarkExecuted(w.Owners[0], now-1))
			},
			wantErr: ErrAlreadyExecuted,
		},
		"stale owner set": {
			prepare: func(t testing.TB, w *SmartWallet, tx *Transaction) {
				assert.Nil(t, tx.Approve(0))
				assert.Nil(t, tx.Approve(1))
				assert.Nil(t, w.SetThreshold(1))
			},
			wantErr: ErrStaleOwnerSet,
		},
		"eta not reached": {
			prepare: func(t testing.TB, w *SmartWallet, tx *Transaction) {
				assert.Nil(t, tx.Approve(0))
				assert.Nil(t, tx.Approve(1))
				tx.ETA = now + 1
			},
			wantErr: ErrETANotReached,
		},
		"executable at exact eta": {
			prepare: func(t testing.TB, w *SmartWallet, tx *Transaction) {
				assert.Nil(t, tx.Approve(0))
				assert.Nil(t, tx.Approve(1))
				tx.ETA = now
			},
			wantErr: nil,
		},
		"executable at end of grace period": {
			prepare: func(t testing.TB, w *SmartWallet, tx *Transaction) {
				assert.Nil(t, tx.Approve(0))
				assert.Nil(t, tx.Approve(1))
				tx.ETA = now.Add(-w.GracePeriod.Duration())
			},
			wantErr: nil,
		},
		"expired after grace period": {
			prepare: func(t testing.TB, w *SmartWallet, tx *Transaction) {
				assert.Nil(t, tx.Approve(0))
				assert.Nil(t, tx.Approve(1))
				tx.ETA = now.Add(-w.GracePeriod.Duration()) - 1
			},
			wantErr: ErrTransactionExpired,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			w := newTestWallet(t, 3, 2)
			tx := newTestTransaction(w, NoETA)
			tc.prepare(t, w, tx)
			assert.IsErr(t, tc.wantErr, tx.CheckExecutable(now, w))
		})
	}
}

func TestTransactionMarkExecutedOnce(t *testing.T) {
	w := newTestWallet(t, 2, 1)
	tx := newTestTransaction(w, NoETA)

	assert.Nil(t, tx.MarkExecuted(w.Owners[0], 100))
	assert.Equal(t, true, tx.IsExecuted())
	assert.IsErr(t, ErrAlreadyExecuted, tx.MarkExecuted(w.Owners[1], 101))
	assert.Equal(t, vaultkit.UnixTime(100), tx.ExecutedAt)
}

func TestInstructionBufferSetBundle(t *testing.T) {
	buf := &InstructionBuffer{
		ETA:       NoETA,
		Authority: vaultkittest.NewAddress(),
		Executor:  vaultkittest.NewAddress(),
		Wallet:    vaultkittest.NewAddress(),
	}
	bundle := InstructionBundle{
		Instructions: []TXInstruction{{ProgramID: vaultkittest.NewAddress()}},
	}

	// Append at the current length.
	assert.Nil(t, buf.SetBundle(0, bundle))
	assert.Nil(t, buf.SetBundle(1, bundle))
	assert.Equal(t, 2, len(buf.Bundles))

	// Overwrite an existing index.
	other := InstructionBundle{
		Instructions: []TXInstruction{
			{ProgramID: vaultkittest.NewAddress()},
			{ProgramID: vaultkittest.NewAddress()},
		},
	}
	assert.Nil(t, buf.SetBundle(0, other))
	assert.Equal(t, 2, len(buf.Bundles))
	got, ok := buf.GetBundle(0)
	assert.Equal(t, true, ok)
	assert.Equal(t, 2, len(got.Instructions))

	// Sparse writes are rejected.
	assert.IsErr(t, ErrBufferBundleNotFound, buf.SetBundle(5, bundle))

	buf.Finalize()
	assert.Equal(t, true, buf.IsFinalized())
	assert.IsErr(t, ErrBufferFinalized, buf.SetBundle(2, bundle))
}

func TestInstructionBufferCheckBundleExecutable(t *testing.T) {
	const now vaultkit.UnixTime = 10000

	cases := map[string]struct {
		prepare func(t testing.TB, w *SmartWallet, buf *InstructionBuffer)
		index   int
		wantErr *errors.Error
	}{
		"executable": {
			prepare: func(t testing.TB, w *SmartWallet, buf *InstructionBuffer) {
				buf.Finalize()
			},
			index:   0,
			wantErr: nil,
		},
		"not finalized": {
			prepare: func(t testing.TB, w *SmartWallet, buf *InstructionBuffer) {},
			index:   0,
			wantErr: errors.ErrState,
		},
		"unknown bundle": {
			prepare: func(t testing.TB, w *SmartWallet, buf *InstructionBuffer) {
				buf.Finalize()
			},
			index:   4,
			wantErr: ErrBufferBundleNotFound,
		},
		"already executed": {
			prepare: func(t testing.TB, w *SmartWallet, buf *InstructionBuffer) {
				buf.Finalize()
				assert.Nil(t, buf.MarkBundleExecuted(0))
			},
			index:   0,
			wantErr: ErrAlreadyExecuted,
		},
		"stale owner set": {
			prepare: func(t testing.TB, w *SmartWallet, buf *InstructionBuffer) {
				buf.Finalize()
				assert.Nil(t, w.SetThreshold(1))
			},
			index:   0,
			wantErr: ErrStaleOwnerSet,
		},
		"eta not reached": {
			prepare: func(t testing.TB, w *SmartWallet, buf *InstructionBuffer) {
				buf.Finalize()
				buf.ETA = now + 1
			},
			index:   0,
			wantErr: ErrETANotReached,
		},
		"expired after grace period": {
			prepare: func(t testing.TB, w *SmartWallet, buf *InstructionBuffer) {
				buf.Finalize()
				buf.ETA = now.Add(-w.GracePeriod.Duration()) - 1
			},
			index:   0,
			wantErr: ErrBundleExpired,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			w := newTestWallet(t, 3, 2)
			buf := &InstructionBuffer{
				OwnerSetSeqno: w.OwnerSetSeqno,
				ETA:           NoETA,
				Authority:     vaultkittest.NewAddress(),
				Executor:      vaultkittest.NewAddress(),
				Wallet:        WalletAddress(w.Base, w.Nonce),
			}
			bundle := InstructionBundle{
				Instructions: []TXInstruction{{ProgramID: vaultkittest.NewAddress()}},
			}
			assert.Nil(t, buf.SetBundle(0, bundle))
			assert.Nil(t, buf.SetBundle(1, bundle))
			tc.prepare(t, w, buf)
			assert.IsErr(t, tc.wantErr, buf.CheckBundleExecutable(now, w, tc.index))
		})
	}
}

func TestInstructionBufferMarkBundleExecutedOnce(t *testing.T) {
	buf := &InstructionBuffer{
		ETA:      NoETA,
		Executor: vaultkittest.NewAddress(),
		Wallet:   vaultkittest.NewAddress(),
		Bundles: []InstructionBundle{
			{Instructions: []TXInstruction{{ProgramID: vaultkittest.NewAddress()}}},
			{Instructions: []TXInstruction{{ProgramID: vaultkittest.NewAddress()}}},
		},
	}

	assert.Nil(t, buf.MarkBundleExecuted(0))
	assert.IsErr(t, ErrAlreadyExecuted, buf.MarkBundleExecuted(0))
	// Bundles execute independently.
	assert.Nil(t, buf.MarkBundleExecuted(1))
	assert.IsErr(t, ErrBufferBundleNotFound, buf.MarkBundleExecuted(2))
}

func TestRecordSerialization(t *testing.T) {
	w := newTestWallet(t, 2, 2)
	raw, err := w.Marshal()
	assert.Nil(t, err)
	var loadedWallet SmartWallet
	assert.Nil(t, loadedWallet.Unmarshal(raw))
	assert.Equal(t, w, &loadedWallet)

	tx := newTestTransaction(w, NoETA)
	raw, err = tx.Marshal()
	assert.Nil(t, err)
	var loadedTx Transaction
	assert.Nil(t, loadedTx.Unmarshal(raw))
	// The NoETA and NotExecuted sentinels must survive serialization.
	assert.Equal(t, NoETA, loadedTx.ETA)
	assert.Equal(t, NotExecuted, loadedTx.ExecutedAt)
}
