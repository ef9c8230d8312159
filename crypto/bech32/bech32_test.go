package bech32

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0xff, 0x00, 0xab, 0xcd, 0xef}

	enc, err := Encode("vault", payload)
	if err != nil {
		t.Fatalf("encode: %+v", err)
	}
	hrp, dec, err := Decode(string(enc))
	if err != nil {
		t.Fatalf("decode: %+v", err)
	}
	if hrp != "vault" {
		t.Fatalf("unexpected human readable part: %q", hrp)
	}
	if !bytes.Equal(payload, dec) {
		t.Fatalf("payload changed during round trip: %X", dec)
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, _, err := Decode("this is not bech32"); err == nil {
		t.Fatal("decoding garbage must fail")
	}
}
