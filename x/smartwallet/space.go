package smartwallet

import (
	"github.com/arx-one/vaultkit"
)

// Storage sizing for capacity planning. The formulas describe the
// canonical fixed-width record layout the space budget is defined
// against and are independent of the wire codec, which may encode more
// compactly.
const (
	// recordTagSize is the record type tag every stored record is
	// budgeted with.
	recordTagSize = 4
	// lenPrefixSize is the budget for every variable length field.
	lenPrefixSize = 4

	// accountMetaSize is an address plus the signer and writable
	// flags.
	accountMetaSize = 32 + 1 + 1
	// partialSignerSize is an index plus a derivation nonce.
	partialSignerSize = 8 + 1

	// walletReservedSize is a block reserved in every wallet record
	// for future extension.
	walletReservedSize = 16 * 8

	// SubaccountInfoSize is the full canonical size of a subaccount
	// record: wallet address, type and index.
	SubaccountInfoSize = 32 + 1 + 8
)

// SmartWalletSpace returns the canonical byte size of a wallet record
// with the given owner capacity. The owner list is budgeted at full
// capacity so the record never needs to grow when owners are added.
func SmartWalletSpace(maxOwners uint32) int {
	const fixed = 32 + // base
		1 + // nonce
		4 + // max owners
		4 + // threshold
		8 + // minimum delay
		8 + // grace period
		4 + // owner set seqno
		8 // num transactions
	return recordTagSize +
		fixed +
		lenPrefixSize + int(maxOwners)*vaultkit.AddressLength +
		walletReservedSize
}

// TXInstructionSpace returns the canonical byte size of a single
// instruction.
func TXInstructionSpace(ins TXInstruction) int {
	return 32 + // program id
		lenPrefixSize + len(ins.Keys)*accountMetaSize +
		lenPrefixSize + len(ins.Data) +
		lenPrefixSize + len(ins.PartialSigners)*partialSignerSize
}

// TransactionSpace returns the canonical byte size of a transaction
// record holding the given instructions, with an approval bitmap sized
// for numOwners.
func TransactionSpace(instructions []TXInstruction, numOwners int) int {
	const fixed = 32 + // wallet
		8 + // index
		32 + // proposer
		4 + // owner set seqno
		8 + // eta
		32 + // executor
		8 // executed at
	size := recordTagSize + fixed +
		lenPrefixSize + numOwners + // one byte per approval flag
		lenPrefixSize
	for _, ins := range instructions {
		size += TXInstructionSpace(ins)
	}
	return size
}

// InstructionBundleSpace returns the canonical byte size of a single
// bundle.
func InstructionBundleSpace(b InstructionBundle) int {
	size := 1 + // executed flag
		lenPrefixSize
	for _, ins := range b.Instructions {
		size += TXInstructionSpace(ins)
	}
	return size
}

// InstructionBufferSpace returns the canonical byte size of a buffer
// record with the given bundles staged.
func InstructionBufferSpace(bundles []InstructionBundle) int {
	const fixed = 4 + // owner set seqno
		8 + // eta
		32 + // authority
		32 + // executor
		32 // wallet
	size := recordTagSize + fixed + lenPrefixSize
	for _, b := range bundles {
		size += InstructionBundleSpace(b)
	}
	return size
}
