package orm

import (
	"github.com/arx-one/vaultkit/errors"
)

// Counter could be used for sequence, but mainly just for test cases.
type Counter struct {
	Count int64
}

var _ Model = (*Counter)(nil)

func (c *Counter) Marshal() ([]byte, error) {
	return EncodeSequence(c.Count), nil
}

func (c *Counter) Unmarshal(bz []byte) error {
	if len(bz) != 8 {
		return errors.Wrapf(errors.ErrInput, "expected 8 bytes, got %d", len(bz))
	}
	c.Count = DecodeSequence(bz)
	return nil
}

func (c *Counter) Validate() error {
	if c.Count < 0 {
		return errors.Wrap(errors.ErrState, "negative counter")
	}
	return nil
}

func (c *Counter) Copy() CloneableData {
	return &Counter{Count: c.Count}
}

// NewCounter returns an object wrapping a counter model with given key.
func NewCounter(key []byte, count int64) *SimpleObj {
	return NewSimpleObj(key, &Counter{Count: count})
}
