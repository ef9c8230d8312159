package smartwallet

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arx-one/vaultkit/vaultkittest"
)

func TestSmartWalletSpace(t *testing.T) {
	// tag + fixed fields + owner list prefix + reserved block.
	const fixed = 4 + 69 + 4 + 128
	assert.Equal(t, fixed+5*32, SmartWalletSpace(5))
	assert.Equal(t, fixed+100*32, SmartWalletSpace(100))

	// The owner list is budgeted at full capacity, so the size only
	// depends on the capacity, never on the live owner count.
	assert.True(t, SmartWalletSpace(10) > SmartWalletSpace(5))
}

func TestTXInstructionSpace(t *testing.T) {
	ins := TXInstruction{
		ProgramID: vaultkittest.NewAddress(),
		Keys: []TXAccountMeta{
			{Key: vaultkittest.NewAddress(), IsSigner: true},
			{Key: vaultkittest.NewAddress(), IsWritable: true},
		},
		Data:           make([]byte, 10),
		PartialSigners: []PartialSigner{{Index: 1, Nonce: 255}},
	}
	assert.Equal(t, 32+4+2*34+4+10+4+1*9, TXInstructionSpace(ins))

	empty := TXInstruction{ProgramID: vaultkittest.NewAddress()}
	assert.Equal(t, 32+4+4+4, TXInstructionSpace(empty))
}

func TestTransactionSpace(t *testing.T) {
	instructions := []TXInstruction{
		{ProgramID: vaultkittest.NewAddress(), Data: make([]byte, 100)},
		{ProgramID: vaultkittest.NewAddress()},
	}
	var insSize int
	for _, ins := range instructions {
		insSize += TXInstructionSpace(ins)
	}
	// tag + fixed fields + approval bitmap prefix and flags +
	// instruction list prefix.
	const fixed = 4 + 124 + 4 + 4
	assert.Equal(t, fixed+3+insSize, TransactionSpace(instructions, 3))

	// One byte per owner approval flag.
	assert.Equal(t, 7, TransactionSpace(instructions, 10)-TransactionSpace(instructions, 3))
}

func TestInstructionBufferSpace(t *testing.T) {
	bundles := []InstructionBundle{
		{Instructions: []TXInstruction{{ProgramID: vaultkittest.NewAddress()}}},
		{Instructions: []TXInstruction{{ProgramID: vaultkittest.NewAddress()}, {ProgramID: vaultkittest.NewAddress()}}},
	}
	var bundleSize int
	for _, b := range bundles {
		bundleSize += InstructionBundleSpace(b)
	}
	const fixed = 4 + 108 + 4
	assert.Equal(t, fixed+bundleSize, InstructionBufferSpace(bundles))

	assert.Equal(t, 1+4+TXInstructionSpace(bundles[0].Instructions[0]),
		InstructionBundleSpace(bundles[0]))
}

func TestSubaccountInfoSize(t *testing.T) {
	// Wallet address, type byte and index.
	assert.Equal(t, 41, SubaccountInfoSize)
}
