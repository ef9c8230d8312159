package vaultkit

import (
	"encoding/json"
	"testing"

	"github.com/arx-one/vaultkit/errors"
)

func TestConditionParse(t *testing.T) {
	cases := map[string]struct {
		condition Condition
		wantErr   *errors.Error
		wantExt   string
		wantTyp   string
		wantData  []byte
	}{
		"valid condition": {
			condition: NewCondition("wallet", "base", []byte{1, 2, 3}),
			wantExt:   "wallet",
			wantTyp:   "base",
			wantData:  []byte{1, 2, 3},
		},
		"data may contain separators": {
			condition: NewCondition("wallet", "base", []byte("a/b/c")),
			wantExt:   "wallet",
			wantTyp:   "base",
			wantData:  []byte("a/b/c"),
		},
		"data may contain a newline": {
			condition: NewCondition("wallet", "base", []byte{0x20, 1}),
			wantExt:   "wallet",
			wantTyp:   "base",
			wantData:  []byte{0x20, 1},
		},
		"missing data": {
			condition: Condition("wallet/base/"),
			wantErr:   errors.ErrInput,
		},
		"extension too short": {
			condition: NewCondition("ab", "base", []byte{1}),
			wantErr:   errors.ErrInput,
		},
		"garbage": {
			condition: Condition("foobar"),
			wantErr:   errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			ext, typ, data, err := tc.condition.Parse()
			if !tc.wantErr.Is(err) {
				t.Fatalf("want %v error, got %+v", tc.wantErr, err)
			}
			if err != nil {
				return
			}
			if ext != tc.wantExt || typ != tc.wantTyp || string(data) != string(tc.wantData) {
				t.Fatalf("unexpected chunks: %q %q %q", ext, typ, data)
			}
		})
	}
}

func TestConditionAddress(t *testing.T) {
	a := NewCondition("wallet", "base", []byte{1}).Address()
	if err := a.Validate(); err != nil {
		t.Fatalf("derived address must be valid: %+v", err)
	}
	b := NewCondition("wallet", "base", []byte{2}).Address()
	if a.Equals(b) {
		t.Fatal("different conditions must derive different addresses")
	}
	again := NewCondition("wallet", "base", []byte{1}).Address()
	if !a.Equals(again) {
		t.Fatal("address derivation must be deterministic")
	}
}

func TestAddressValidate(t *testing.T) {
	if err := NewAddress([]byte("some data")).Validate(); err != nil {
		t.Fatalf("hashed address must be valid: %+v", err)
	}
	if err := Address([]byte("too short")).Validate(); !errors.ErrInput.Is(err) {
		t.Fatalf("want an input error, got %+v", err)
	}
	if err := Address(nil).Validate(); !errors.ErrInput.Is(err) {
		t.Fatalf("want an input error, got %+v", err)
	}
}

func TestAddressIsEmpty(t *testing.T) {
	if !Address(nil).IsEmpty() {
		t.Fatal("nil address must be empty")
	}
	if !(Address{}).IsEmpty() {
		t.Fatal("zero length address must be empty")
	}
	if NewAddress([]byte("x")).IsEmpty() {
		t.Fatal("derived address must not be empty")
	}
}

func TestAddressBech32(t *testing.T) {
	addr := NewAddress([]byte("some data"))
	enc, err := addr.Bech32("vault")
	if err != nil {
		t.Fatalf("cannot encode: %+v", err)
	}
	if len(enc) == 0 {
		t.Fatal("empty encoding")
	}
	if _, err := Address([]byte("short")).Bech32("vault"); !errors.ErrInput.Is(err) {
		t.Fatalf("want an input error, got %+v", err)
	}
}

func TestAddressJSONRoundTrip(t *testing.T) {
	addr := NewAddress([]byte("some data"))
	raw, err := json.Marshal(addr)
	if err != nil {
		t.Fatalf("cannot marshal: %+v", err)
	}
	var loaded Address
	if err := json.Unmarshal(raw, &loaded); err != nil {
		t.Fatalf("cannot unmarshal: %+v", err)
	}
	if !addr.Equals(loaded) {
		t.Fatalf("want %s, got %s", addr, loaded)
	}
}

func TestConditionJSONRoundTrip(t *testing.T) {
	c := NewCondition("wallet", "base", []byte{1, 2, 3})
	raw, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("cannot marshal: %+v", err)
	}
	var loaded Condition
	if err := json.Unmarshal(raw, &loaded); err != nil {
		t.Fatalf("cannot unmarshal: %+v", err)
	}
	if !c.Equals(loaded) {
		t.Fatalf("want %q, got %q", c, loaded)
	}
}
