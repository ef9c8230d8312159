package store

import (
	"bytes"
	"testing"
)

func TestMemStoreGetSetDelete(t *testing.T) {
	db := NewMemStore()

	k, v := []byte("key"), []byte("value")

	if db.Has(k) {
		t.Fatal("empty store must not contain the key")
	}
	if db.Get(k) != nil {
		t.Fatal("empty store must return nil")
	}

	db.Set(k, v)
	if !db.Has(k) {
		t.Fatal("stored key not found")
	}
	if got := db.Get(k); !bytes.Equal(got, v) {
		t.Fatalf("want %q, got %q", v, got)
	}

	// Overwrite must replace, not append.
	v2 := []byte("replaced")
	db.Set(k, v2)
	if got := db.Get(k); !bytes.Equal(got, v2) {
		t.Fatalf("want %q, got %q", v2, got)
	}

	db.Delete(k)
	if db.Has(k) {
		t.Fatal("deleted key still present")
	}
}

func TestMemStoreNilKeyPanics(t *testing.T) {
	db := NewMemStore()
	assertPanics(t, func() { db.Get(nil) })
	assertPanics(t, func() { db.Set(nil, []byte("x")) })
	assertPanics(t, func() { db.Delete(nil) })
}

func TestMemStoreIterator(t *testing.T) {
	db := NewMemStore()
	db.Set([]byte("a"), []byte("1"))
	db.Set([]byte("b"), []byte("2"))
	db.Set([]byte("c"), []byte("3"))
	db.Set([]byte("d"), []byte("4"))

	cases := map[string]struct {
		start    []byte
		end      []byte
		wantKeys []string
	}{
		"full range":          {nil, nil, []string{"a", "b", "c", "d"}},
		"end is exclusive":    {[]byte("b"), []byte("d"), []string{"b", "c"}},
		"open start":          {nil, []byte("c"), []string{"a", "b"}},
		"open end":            {[]byte("c"), nil, []string{"c", "d"}},
		"empty range":         {[]byte("x"), nil, nil},
		"start equal to end":  {[]byte("b"), []byte("b"), nil},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			it := db.Iterator(tc.start, tc.end)
			defer it.Close()

			var got []string
			for ; it.Valid(); it.Next() {
				got = append(got, string(it.Key()))
			}
			if len(got) != len(tc.wantKeys) {
				t.Fatalf("want %v, got %v", tc.wantKeys, got)
			}
			for i := range got {
				if got[i] != tc.wantKeys[i] {
					t.Fatalf("want %v, got %v", tc.wantKeys, got)
				}
			}
		})
	}
}

func TestMemStoreReverseIterator(t *testing.T) {
	db := NewMemStore()
	db.Set([]byte("a"), []byte("1"))
	db.Set([]byte("b"), []byte("2"))
	db.Set([]byte("c"), []byte("3"))

	it := db.ReverseIterator([]byte("c"), nil)
	defer it.Close()

	want := []string{"c", "b", "a"}
	for _, w := range want {
		if !it.Valid() {
			t.Fatalf("iterator exhausted, want %q", w)
		}
		if got := string(it.Key()); got != w {
			t.Fatalf("want %q, got %q", w, got)
		}
		it.Next()
	}
	if it.Valid() {
		t.Fatal("iterator must be exhausted")
	}
}

func assertPanics(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("panic expected")
		}
	}()
	fn()
}
