package smartwallet

import (
	"encoding/binary"

	"github.com/arx-one/vaultkit"
	"github.com/arx-one/vaultkit/errors"
)

// All identities managed by this package are conditions under the
// "wallet" extension namespace. Their addresses are derived, never
// backed by a private key, so only this package can authorize actions
// on their behalf.

// WalletCondition returns the condition controlling the wallet derived
// from the given base key and nonce.
func WalletCondition(base vaultkit.Address, nonce uint8) vaultkit.Condition {
	data := make([]byte, 0, len(base)+1)
	data = append(data, base...)
	data = append(data, nonce)
	return vaultkit.NewCondition("wallet", "base", data)
}

// WalletAddress returns the address of the wallet derived from the
// given base key and nonce.
func WalletAddress(base vaultkit.Address, nonce uint8) vaultkit.Address {
	return WalletCondition(base, nonce).Address()
}

// DeriveWallet finds the canonical derivation of a wallet address for
// the given base key. The canonical nonce is the highest one producing
// an address with a non-zero leading byte, so that clients and the core
// always agree on a single wallet address per base.
func DeriveWallet(base vaultkit.Address) (vaultkit.Address, uint8, error) {
	for i := 255; i >= 0; i-- {
		nonce := uint8(i)
		if addr := WalletAddress(base, nonce); addr[0] != 0 {
			return addr, nonce, nil
		}
	}
	// With a 256 value search space this is unreachable in practice.
	return nil, 0, errors.Wrapf(errors.ErrState, "no canonical nonce for base %s", base)
}

// SubaccountCondition returns the condition controlling the subaccount
// of the given wallet at the given index. Derived and owner-invoker
// subaccounts live in disjoint namespaces, the same index yields two
// unrelated addresses.
func SubaccountCondition(wallet vaultkit.Address, typ SubaccountType, index uint64) vaultkit.Condition {
	data := make([]byte, 0, len(wallet)+8)
	data = append(data, wallet...)
	data = appendUint64(data, index)
	var kind string
	switch typ {
	case SubaccountOwnerInvoker:
		kind = "invoker"
	default:
		kind = "derived"
	}
	return vaultkit.NewCondition("wallet", kind, data)
}

// SubaccountAddress returns the address of the subaccount of the given
// wallet at the given index.
func SubaccountAddress(wallet vaultkit.Address, typ SubaccountType, index uint64) vaultkit.Address {
	return SubaccountCondition(wallet, typ, index).Address()
}

// PartialSignerCondition returns the condition of the partial signer of
// the given wallet at the given index and nonce.
func PartialSignerCondition(wallet vaultkit.Address, index uint64, nonce uint8) vaultkit.Condition {
	data := make([]byte, 0, len(wallet)+9)
	data = append(data, wallet...)
	data = appendUint64(data, index)
	data = append(data, nonce)
	return vaultkit.NewCondition("wallet", "signer", data)
}

// DerivePartialSigner finds the canonical derivation of a partial
// signer address for the given wallet and index, using the same nonce
// selection rule as DeriveWallet.
func DerivePartialSigner(wallet vaultkit.Address, index uint64) (vaultkit.Address, uint8, error) {
	for i := 255; i >= 0; i-- {
		nonce := uint8(i)
		if addr := PartialSignerCondition(wallet, index, nonce).Address(); addr[0] != 0 {
			return addr, nonce, nil
		}
	}
	return nil, 0, errors.Wrapf(errors.ErrState, "no canonical nonce for partial signer %d", index)
}

func appendUint64(b []byte, v uint64) []byte {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], v)
	return append(b, raw[:]...)
}
