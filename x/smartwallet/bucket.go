package smartwallet

import (
	"encoding/binary"

	"github.com/arx-one/vaultkit"
	"github.com/arx-one/vaultkit/errors"
	"github.com/arx-one/vaultkit/orm"
)

// WalletBucket stores SmartWallet records keyed by the wallet address.
type WalletBucket struct {
	orm.Bucket
}

func NewWalletBucket() WalletBucket {
	return WalletBucket{
		Bucket: orm.NewBucket("wallet", orm.NewSimpleObj(nil, &SmartWallet{})),
	}
}

// GetWallet loads the wallet with given address, failing with
// ErrNotFound when it does not exist.
func (b WalletBucket) GetWallet(db vaultkit.ReadOnlyKVStore, addr vaultkit.Address) (*SmartWallet, error) {
	obj, err := b.Get(db, addr)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "wallet %s", addr)
	}
	w, ok := obj.Value().(*SmartWallet)
	if !ok {
		return nil, errors.Wrapf(errors.ErrModel, "invalid type: %T", obj.Value())
	}
	return w, nil
}

// Save persists the wallet under its derived address.
func (b WalletBucket) Save(db vaultkit.KVStore, w *SmartWallet) error {
	addr := WalletAddress(w.Base, w.Nonce)
	return b.Bucket.Save(db, orm.NewSimpleObj(addr, w))
}

// TransactionBucket stores Transaction records keyed by the wallet
// address joined with the big endian transaction index, so that
// iteration over a wallet prefix yields transactions in proposal order.
type TransactionBucket struct {
	orm.Bucket
}

func NewTransactionBucket() TransactionBucket {
	return TransactionBucket{
		Bucket: orm.NewBucket("txrec", orm.NewSimpleObj(nil, &Transaction{})),
	}
}

func transactionKey(wallet vaultkit.Address, index uint64) []byte {
	key := make([]byte, len(wallet)+8)
	copy(key, wallet)
	binary.BigEndian.PutUint64(key[len(wallet):], index)
	return key
}

// GetTransaction loads the transaction of the wallet at given index,
// failing with ErrNotFound when it does not exist.
func (b TransactionBucket) GetTransaction(db vaultkit.ReadOnlyKVStore, wallet vaultkit.Address, index uint64) (*Transaction, error) {
	obj, err := b.Get(db, transactionKey(wallet, index))
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "transaction %d of wallet %s", index, wallet)
	}
	t, ok := obj.Value().(*Transaction)
	if !ok {
		return nil, errors.Wrapf(errors.ErrModel, "invalid type: %T", obj.Value())
	}
	return t, nil
}

// Save persists the transaction under its wallet and index.
func (b TransactionBucket) Save(db vaultkit.KVStore, t *Transaction) error {
	return b.Bucket.Save(db, orm.NewSimpleObj(transactionKey(t.Wallet, t.Index), t))
}

// BufferBucket stores InstructionBuffer records keyed by an auto
// incremented sequence id.
type BufferBucket struct {
	orm.Bucket
	idSeq orm.Sequence
}

func NewBufferBucket() BufferBucket {
	b := orm.NewBucket("insbuf", orm.NewSimpleObj(nil, &InstructionBuffer{}))
	return BufferBucket{
		Bucket: b,
		idSeq:  b.Sequence("id"),
	}
}

// Create persists a new buffer and returns its assigned id.
func (b BufferBucket) Create(db vaultkit.KVStore, buf *InstructionBuffer) ([]byte, error) {
	id := b.idSeq.NextVal(db)
	if err := b.Bucket.Save(db, orm.NewSimpleObj(id, buf)); err != nil {
		return nil, err
	}
	return id, nil
}

// GetBuffer loads the buffer with given id, failing with ErrNotFound
// when it does not exist.
func (b BufferBucket) GetBuffer(db vaultkit.ReadOnlyKVStore, id []byte) (*InstructionBuffer, error) {
	obj, err := b.Get(db, id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "buffer %x", id)
	}
	buf, ok := obj.Value().(*InstructionBuffer)
	if !ok {
		return nil, errors.Wrapf(errors.ErrModel, "invalid type: %T", obj.Value())
	}
	return buf, nil
}

// Save persists the buffer under given id.
func (b BufferBucket) Save(db vaultkit.KVStore, id []byte, buf *InstructionBuffer) error {
	return b.Bucket.Save(db, orm.NewSimpleObj(id, buf))
}

// SubaccountBucket stores SubaccountInfo records keyed by the derived
// subaccount address.
type SubaccountBucket struct {
	orm.Bucket
}

func NewSubaccountBucket() SubaccountBucket {
	return SubaccountBucket{
		Bucket: orm.NewBucket("subacct", orm.NewSimpleObj(nil, &SubaccountInfo{})),
	}
}

// GetSubaccount loads the subaccount record stored under the derived
// address, failing with ErrNotFound when it does not exist.
func (b SubaccountBucket) GetSubaccount(db vaultkit.ReadOnlyKVStore, addr vaultkit.Address) (*SubaccountInfo, error) {
	obj, err := b.Get(db, addr)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "subaccount %s", addr)
	}
	s, ok := obj.Value().(*SubaccountInfo)
	if !ok {
		return nil, errors.Wrapf(errors.ErrModel, "invalid type: %T", obj.Value())
	}
	return s, nil
}

// Save persists the subaccount record under its derived address.
func (b SubaccountBucket) Save(db vaultkit.KVStore, s *SubaccountInfo) error {
	addr := SubaccountAddress(s.Wallet, s.Type, s.Index)
	return b.Bucket.Save(db, orm.NewSimpleObj(addr, s))
}
