/*
Package orm provides an easy to use db wrapper.

Break state space into prefixed sections called Buckets. Each bucket
contains only one type of object and has a primary index. Easy queries
for one and iteration.
*/
package orm

import (
	"github.com/arx-one/vaultkit"
)

// Object is what is stored in the bucket. Key is joined with the bucket
// prefix to construct the full db key.
type Object interface {
	Keyed
	Cloneable
	// Validate returns error if the object is not in a valid state to
	// save to the db (eg. field missing, out of range, ...).
	vaultkit.Validater

	Value() vaultkit.Persistent
}

// Keyed is anything that can identify itself.
type Keyed interface {
	Key() []byte
	SetKey([]byte)
}

// Cloneable will create a new object that can be loaded into.
type Cloneable interface {
	Clone() Object
}

// CloneableData is an intelligent Value that can be embedded in a simple
// object to handle much of the details.
type CloneableData interface {
	vaultkit.Validater
	vaultkit.Persistent
	Copy() CloneableData
}

// Model groups together the interfaces any bucket stored entity must
// implement.
type Model interface {
	vaultkit.Persistent
	vaultkit.Validater
}

// Reader defines an interface that allows reading objects from the db.
type Reader interface {
	Get(db vaultkit.ReadOnlyKVStore, key []byte) (Object, error)
}
