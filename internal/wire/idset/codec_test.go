package idset

import (
	"bytes"
	"reflect"
	"testing"
)

func roundTrip(t *testing.T, s IDSet) IDSet {
	t.Helper()
	buf, err := Encode(nil, s)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return got
}

func TestRoundTrip(t *testing.T) {
	sets := []IDSet{
		NewInherit([]uint64{1, 2, 3}, []uint64{4, 5}),
		NewInherit(nil, nil),
		NewWhite([]uint64{9, 8, 7}),
		NewWhite(nil),
		NewBlack([]uint64{100}),
		NewBlack(nil),
	}

	for i, s := range sets {
		got := roundTrip(t, s)
		if got.Base() != s.Base() {
			t.Errorf("case %d: base = %v, want %v", i, got.Base(), s.Base())
		}
		if !equalIDs(got.Whitelist(), s.Whitelist()) {
			t.Errorf("case %d: whitelist = %v, want %v", i, got.Whitelist(), s.Whitelist())
		}
		if !equalIDs(got.Blacklist(), s.Blacklist()) {
			t.Errorf("case %d: blacklist = %v, want %v", i, got.Blacklist(), s.Blacklist())
		}
	}
}

// TestRoundTripEmptyListDecodesToNil checks that a zero-length encoded
// vector decodes back to a nil slice, matching what NewInherit/NewWhite/
// NewBlack store for an empty list, so reflect.DeepEqual (and so
// require.Equal) treats the round trip as equal rather than nil-vs-empty.
func TestRoundTripEmptyListDecodesToNil(t *testing.T) {
	sets := []IDSet{
		NewInherit(nil, nil),
		NewWhite(nil),
		NewBlack(nil),
	}
	for i, s := range sets {
		got := roundTrip(t, s)
		if !reflect.DeepEqual(got, s) {
			t.Errorf("case %d: roundTrip(%#v) = %#v, want identical value", i, s, got)
		}
		if got.whitelist != nil {
			t.Errorf("case %d: whitelist = %#v, want nil", i, got.whitelist)
		}
		if got.blacklist != nil {
			t.Errorf("case %d: blacklist = %#v, want nil", i, got.blacklist)
		}
	}
}

func TestDecodeInvalidDiscriminant(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte{0x77})); err == nil {
		t.Fatal("expected an error for an unrecognized base discriminant")
	}
}

func TestDecodeInsufficientBytes(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte{byte(BaseWhite)})); err == nil {
		t.Fatal("expected an error when the length prefix is truncated")
	}
}

func equalIDs(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
