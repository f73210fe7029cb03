package vlq

import (
	"bytes"
	"errors"
	"testing"
)

//region Testing Helpers

// parseTestCase represents a single parsing test case for type T.
type parseTestCase[T Unsigned] struct {
	data    []byte // input
	want    T      // expected output
	wantN   int    // expected number of consumed bytes
	wantErr error  // expected error
}

// testParse asserts that decoding a VLQ using f from tc.data produces the
// expected results.
func testParse[T Unsigned](t *testing.T, f func([]byte) (T, int, error), tc parseTestCase[T]) {
	t.Helper()
	got, n, err := f(tc.data)
	if !errors.Is(err, tc.wantErr) {
		t.Fatalf("parse(%# x) error = %v, wantErr %v", tc.data, err, tc.wantErr)
	}
	if err != nil {
		return
	}
	if got != tc.want {
		t.Errorf("parse(%# x) got = %v, want %v", tc.data, got, tc.want)
	}
	if n != tc.wantN {
		t.Errorf("parse(%# x) consumed %d bytes, want %d", tc.data, n, tc.wantN)
	}
}

//endregion

func TestParse(t *testing.T) {
	tests := map[string]parseTestCase[uint]{
		"Zero":         {[]byte{0x00}, 0, 1, nil},
		"Single":       {[]byte{0x7f, 0x01}, 127, 1, nil},
		"Two":          {[]byte{0x81, 0x00}, 128, 2, nil},
		"LeadingZeros": {[]byte{0x80, 0x80, 0x01}, 1, 3, nil},
		"Large":        {[]byte{0x86, 0x48}, 840, 2, nil},
		"Empty":        {nil, 0, 0, ErrTruncated},
		"Truncated":    {[]byte{0x81, 0x80}, 0, 0, ErrTruncated},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			testParse(t, Parse[uint], tc)
		})
	}
}

func TestParseMinimal(t *testing.T) {
	tests := map[string]parseTestCase[uint32]{
		"Minimal":    {[]byte{0x81, 0x00}, 128, 2, nil},
		"NotMinimal": {[]byte{0x80, 0x01}, 0, 0, ErrNotMinimal},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			testParse(t, ParseMinimal[uint32], tc)
		})
	}
}

func TestParseOverflow(t *testing.T) {
	tests := map[string]parseTestCase[uint8]{
		"MaxUint8": {[]byte{0x81, 0x7f}, 255, 2, nil},
		"Overflow": {[]byte{0x82, 0x00}, 0, 0, ErrOverflow},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			testParse(t, Parse[uint8], tc)
		})
	}
}

func TestAppend(t *testing.T) {
	tests := map[string]struct {
		value uint64
		want  []byte
	}{
		"Zero":      {0, []byte{0x00}},
		"OneByte":   {0x7f, []byte{0x7f}},
		"TwoBytes":  {0x80, []byte{0x81, 0x00}},
		"OID":       {113549, []byte{0x86, 0xf7, 0x0d}},
		"MaxUint64": {^uint64(0), []byte{0x81, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if l := Length(tc.value); l != len(tc.want) {
				t.Errorf("Length(%d) = %d, want %d", tc.value, l, len(tc.want))
			}
			got := Append([]byte{0xAA}, tc.value)
			if !bytes.Equal(got[1:], tc.want) || got[0] != 0xAA {
				t.Errorf("Append(%d) = % x, want % x", tc.value, got[1:], tc.want)
			}
			back, n, err := ParseMinimal[uint64](got[1:])
			if err != nil || back != tc.value || n != len(tc.want) {
				t.Errorf("ParseMinimal(% x) = %d, %d, %v", got[1:], back, n, err)
			}
		})
	}
}

func TestSkip(t *testing.T) {
	n, err := Skip([]byte{0x81, 0x82, 0x03, 0x04})
	if err != nil || n != 3 {
		t.Errorf("Skip() = %d, %v, want 3, nil", n, err)
	}
	if _, err = Skip([]byte{0x81}); !errors.Is(err, ErrTruncated) {
		t.Errorf("Skip() error = %v, want %v", err, ErrTruncated)
	}
}
