package smartwallet

import (
	"testing"

	"github.com/arx-one/vaultkit"
	"github.com/arx-one/vaultkit/errors"
	"github.com/arx-one/vaultkit/vaultkittest"
	"github.com/arx-one/vaultkit/vaultkittest/assert"
)

func TestCreateWalletMsgValidate(t *testing.T) {
	valid := func() *CreateWalletMsg {
		return &CreateWalletMsg{
			Base:      vaultkittest.NewAddress(),
			MaxOwners: 4,
			Owners: []vaultkit.Address{
				vaultkittest.NewAddress(),
				vaultkittest.NewAddress(),
			},
			Threshold: 2,
		}
	}

	cases := map[string]struct {
		mutate  func(m *CreateWalletMsg)
		wantErr *errors.Error
	}{
		"valid": {
			mutate:  func(m *CreateWalletMsg) {},
			wantErr: nil,
		},
		"missing base": {
			mutate:  func(m *CreateWalletMsg) { m.Base = nil },
			wantErr: errors.ErrInput,
		},
		"no owners": {
			mutate:  func(m *CreateWalletMsg) { m.Owners = nil },
			wantErr: errors.ErrMsg,
		},
		"owners over capacity": {
			mutate:  func(m *CreateWalletMsg) { m.MaxOwners = 1 },
			wantErr: errors.ErrMsg,
		},
		"capacity over global limit": {
			mutate:  func(m *CreateWalletMsg) { m.MaxOwners = maxOwnersAllowed + 1 },
			wantErr: errors.ErrMsg,
		},
		"duplicate owner": {
			mutate:  func(m *CreateWalletMsg) { m.Owners[1] = m.Owners[0] },
			wantErr: ErrDuplicateOwner,
		},
		"zero threshold": {
			mutate:  func(m *CreateWalletMsg) { m.Threshold = 0 },
			wantErr: ErrInvalidThreshold,
		},
		"threshold above owner count": {
			mutate:  func(m *CreateWalletMsg) { m.Threshold = 3 },
			wantErr: ErrInvalidThreshold,
		},
		"negative minimum delay": {
			mutate:  func(m *CreateWalletMsg) { m.MinimumDelay = -1 },
			wantErr: errors.ErrMsg,
		},
		"negative grace period": {
			mutate:  func(m *CreateWalletMsg) { m.GracePeriod = -1 },
			wantErr: errors.ErrMsg,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			msg := valid()
			tc.mutate(msg)
			assert.IsErr(t, tc.wantErr, msg.Validate())
		})
	}
}

func TestProposeTxMsgValidate(t *testing.T) {
	valid := func() *ProposeTxMsg {
		return &ProposeTxMsg{
			Wallet: vaultkittest.NewAddress(),
			Instructions: []TXInstruction{
				{ProgramID: vaultkittest.NewAddress()},
			},
			ETA: NoETA,
		}
	}

	cases := map[string]struct {
		mutate  func(m *ProposeTxMsg)
		wantErr *errors.Error
	}{
		"valid without timelock": {
			mutate:  func(m *ProposeTxMsg) {},
			wantErr: nil,
		},
		"valid with timelock": {
			mutate:  func(m *ProposeTxMsg) { m.ETA = 123456 },
			wantErr: nil,
		},
		"missing wallet": {
			mutate:  func(m *ProposeTxMsg) { m.Wallet = nil },
			wantErr: errors.ErrInput,
		},
		"no instructions": {
			mutate:  func(m *ProposeTxMsg) { m.Instructions = nil },
			wantErr: errors.ErrMsg,
		},
		"invalid program id": {
			mutate: func(m *ProposeTxMsg) {
				m.Instructions[0].ProgramID = []byte("bad")
			},
			wantErr: errors.ErrInput,
		},
		"negative eta that is not the sentinel": {
			mutate:  func(m *ProposeTxMsg) { m.ETA = -42 },
			wantErr: errors.ErrState,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			msg := valid()
			tc.mutate(msg)
			assert.IsErr(t, tc.wantErr, msg.Validate())
		})
	}
}

func TestBufferMsgsValidate(t *testing.T) {
	create := &CreateBufferMsg{
		Wallet:    vaultkittest.NewAddress(),
		ETA:       NoETA,
		Authority: vaultkittest.NewAddress(),
		Executor:  vaultkittest.NewAddress(),
	}
	assert.Nil(t, create.Validate())

	create.Authority = nil
	assert.IsErr(t, errors.ErrInput, create.Validate())

	write := &WriteBundleMsg{
		BufferID:    []byte{0, 0, 0, 0, 0, 0, 0, 1},
		BundleIndex: 0,
		Instructions: []TXInstruction{
			{ProgramID: vaultkittest.NewAddress()},
		},
	}
	assert.Nil(t, write.Validate())

	write.BufferID = nil
	assert.IsErr(t, errors.ErrMsg, write.Validate())

	write.BufferID = []byte{1}
	write.Instructions = nil
	assert.IsErr(t, errors.ErrMsg, write.Validate())

	assert.IsErr(t, errors.ErrMsg, (&FinalizeBufferMsg{}).Validate())
	assert.Nil(t, (&FinalizeBufferMsg{BufferID: []byte{1}}).Validate())

	assert.IsErr(t, errors.ErrMsg, (&ExecuteBundleMsg{}).Validate())
	assert.Nil(t, (&ExecuteBundleMsg{BufferID: []byte{1}}).Validate())
}

func TestSubaccountMsgsValidate(t *testing.T) {
	create := &CreateSubaccountMsg{
		Wallet: vaultkittest.NewAddress(),
		Type:   SubaccountOwnerInvoker,
		Index:  3,
	}
	assert.Nil(t, create.Validate())

	create.Type = SubaccountType(9)
	assert.IsErr(t, errors.ErrState, create.Validate())

	invoke := &InvokeSubaccountMsg{
		Wallet: vaultkittest.NewAddress(),
		Index:  3,
		Instructions: []TXInstruction{
			{ProgramID: vaultkittest.NewAddress()},
		},
	}
	assert.Nil(t, invoke.Validate())

	invoke.Instructions = nil
	assert.IsErr(t, errors.ErrMsg, invoke.Validate())
}

func TestMsgPathsAreRoutable(t *testing.T) {
	paths := []string{
		pathCreateWallet,
		pathSetOwners,
		pathSetThreshold,
		pathProposeTx,
		pathApproveTx,
		pathUnapproveTx,
		pathExecuteTx,
		pathExecuteTxDerived,
		pathCreateBuffer,
		pathWriteBundle,
		pathFinalizeBuffer,
		pathExecuteBundle,
		pathCreateSubaccount,
		pathInvokeSubaccount,
	}
	for _, p := range paths {
		vaultkit.MustValidatePath(p)
	}
}
