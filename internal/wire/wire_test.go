package wire

import (
	"bytes"
	"testing"
)

func TestContainerRoundTrip(t *testing.T) {
	in := map[string][]byte{
		"mean":     {0x01, 0x02},
		"waveform": {0xDE, 0xAD, 0xBE, 0xEF},
		"empty":    {},
	}
	img := EncodeContainer(in)

	out, err := DecodeContainer(img)
	if err != nil {
		t.Fatalf("DecodeContainer: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("field count: got %d want %d", len(out), len(in))
	}
	for k, v := range in {
		if !bytes.Equal(out[k], v) {
			t.Fatalf("field %q: got %v want %v", k, out[k], v)
		}
	}
}

func TestContainerEmpty(t *testing.T) {
	img := EncodeContainer(nil)
	out, err := DecodeContainer(img)
	if err != nil {
		t.Fatalf("DecodeContainer: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty container, got %v", out)
	}
}

func TestContainerDeterministic(t *testing.T) {
	in := map[string][]byte{"b": {2}, "a": {1}, "c": {3}}
	if !bytes.Equal(EncodeContainer(in), EncodeContainer(in)) {
		t.Fatal("encoding is not deterministic")
	}
}

func TestContainerCorrupt(t *testing.T) {
	cases := map[string][]byte{
		"empty input":   {},
		"short header":  {'C', 'L', 'S', 'T', 1},
		"bad magic":     append([]byte{'X', 'X', 'X', 'X'}, EncodeContainer(map[string][]byte{"a": {1}})[4:]...),
		"bad version":   {'C', 'L', 'S', 'T', 9, 0, 0, 0, 0},
		"truncated key": {'C', 'L', 'S', 'T', 1, 0, 0, 0, 1, 0, 5, 'a'},
		// A count the remaining bytes cannot possibly hold must fail fast,
		// before any allocation sized from it.
		"absurd count": {'C', 'L', 'S', 'T', 1, 0xFF, 0xFF, 0xFF, 0xFF},
		"inflated count": append(
			EncodeContainer(map[string][]byte{"a": {1}})[:5],
			0, 0, 0, 2, 0, 1, 'a', 0, 0, 0, 1, 1),
	}
	for name, b := range cases {
		if _, err := DecodeContainer(b); err == nil {
			t.Errorf("%s: expected ErrCorrupt, got nil", name)
		}
	}

	// Trailing garbage after the last field is also corruption.
	img := EncodeContainer(map[string][]byte{"a": {1}})
	if _, err := DecodeContainer(append(img, 0x00)); err == nil {
		t.Error("trailing bytes: expected ErrCorrupt, got nil")
	}
}
