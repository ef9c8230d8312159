package vaultkittest

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/arx-one/vaultkit"
)

// condCounter is a global counter used to generate unique conditions.
var condCounter uint64

// NewCondition returns a new, unique condition. All conditions generated
// by this function are of the same "test/seq" type.
func NewCondition() vaultkit.Condition {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, atomic.AddUint64(&condCounter, 1))
	return vaultkit.NewCondition("test", "seq", data)
}

// NewAddress returns the address of a new, unique condition.
func NewAddress() vaultkit.Address {
	return NewCondition().Address()
}
