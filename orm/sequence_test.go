package orm

import (
	"bytes"
	"testing"

	"github.com/arx-one/vaultkit/store"
)

func TestSequenceMonotonic(t *testing.T) {
	db := store.NewMemStore()
	s := NewSequence("wallet", "id")

	var prev []byte
	for i := int64(1); i <= 10; i++ {
		if got := s.NextInt(db); got != i {
			t.Fatalf("want %d, got %d", i, got)
		}
		_, raw := s.Latest(db)
		if prev != nil && bytes.Compare(prev, raw) >= 0 {
			t.Fatal("serialized sequence values must be strictly increasing")
		}
		prev = raw
	}
}

func TestSequenceLatestDoesNotAdvance(t *testing.T) {
	db := store.NewMemStore()
	s := NewSequence("wallet", "id")

	s.NextVal(db)
	before, _ := s.Latest(db)
	after, _ := s.Latest(db)
	if before != after {
		t.Fatal("Latest must not advance the counter")
	}
	if next := s.NextInt(db); next != before+1 {
		t.Fatalf("want %d, got %d", before+1, next)
	}
}

func TestSequencesAreIndependent(t *testing.T) {
	db := store.NewMemStore()
	a := NewSequence("wallet", "id")
	b := NewSequence("buffer", "id")

	a.NextVal(db)
	a.NextVal(db)
	if got := b.NextInt(db); got != 1 {
		t.Fatalf("sequences must not share state, got %d", got)
	}
}

func TestDecodeNilSequence(t *testing.T) {
	if DecodeSequence(nil) != 0 {
		t.Fatal("nil decodes as zero state")
	}
}
