package midi

import (
	"bytes"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func decodeVLQ(b []byte) (uint32, int) {
	var x uint32
	for i, c := range b {
		x = x<<7 | uint32(c&0x7f)
		if c&0x80 == 0 {
			return x, i + 1
		}
	}
	return x, -1
}

func TestDeltaTimeEncoding(t *testing.T) {
	tests := []struct {
		in   uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{0x40, []byte{0x40}},
		{127, []byte{0x7f}},
		{128, []byte{0x81, 0x00}},
		{0x2000, []byte{0xc0, 0x00}},
		{0x3fff, []byte{0xff, 0x7f}},
		{16384, []byte{0x81, 0x80, 0x00}},
		{0x1fffff, []byte{0xff, 0xff, 0x7f}},
		{0x200000, []byte{0x81, 0x80, 0x80, 0x00}},
		{MaxDeltaTime, []byte{0xff, 0xff, 0xff, 0x7f}},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		n, err := DeltaTime(tt.in).WriteTo(&buf)
		if err != nil {
			t.Errorf("%#x: unexpected error: %v", tt.in, err)
			continue
		}
		if !bytes.Equal(buf.Bytes(), tt.want) {
			t.Errorf("%#x: got % x, want % x", tt.in, buf.Bytes(), tt.want)
		}
		if int(n) != len(tt.want) || DeltaTime(tt.in).Size() != len(tt.want) {
			t.Errorf("%#x: n=%d size=%d, want %d", tt.in, n, DeltaTime(tt.in).Size(), len(tt.want))
		}
	}
}

func TestDeltaTimeOverflow(t *testing.T) {
	for _, d := range []uint32{MaxDeltaTime + 1, 0xffffffff} {
		var buf bytes.Buffer
		if _, err := DeltaTime(d).WriteTo(&buf); !errors.Is(err, ErrDeltaTimeRange) {
			t.Errorf("%#x: got %v, want ErrDeltaTimeRange", d, err)
		}
		if buf.Len() != 0 {
			t.Errorf("%#x: wrote % x", d, buf.Bytes())
		}
		if DeltaTime(d).Valid() {
			t.Errorf("%#x reported valid", d)
		}
	}
}

func TestDeltaTimeRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)

	properties.Property("decoding an encoded delta-time gives the original value", prop.ForAll(
		func(d uint32) bool {
			var buf bytes.Buffer
			n, err := DeltaTime(d).WriteTo(&buf)
			if err != nil {
				return false
			}
			got, l := decodeVLQ(buf.Bytes())
			return got == d && l == int(n) && l == DeltaTime(d).Size() && l <= 4
		},
		gen.UInt32Range(0, MaxDeltaTime),
	))

	properties.TestingRun(t)
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	n, err := (&Header{Format: 0, NumTracks: 1, Division: 480}).WriteTo(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{
		'M', 'T', 'h', 'd',
		0x00, 0x00, 0x00, 0x06,
		0x00, 0x00,
		0x00, 0x01,
		0x01, 0xe0,
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("got % x, want % x", buf.Bytes(), want)
	}
	if n != 14 {
		t.Errorf("n = %d, want 14", n)
	}
}

func TestHeaderDivision(t *testing.T) {
	tests := []struct {
		division uint16
		ok       bool
	}{
		{0, false},
		{1, true},
		{96, true},
		{0x100, true},
		{0x7fff, true},
		{0x8000, false},
		{0xe728, false},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		_, err := (&Header{NumTracks: 1, Division: tt.division}).WriteTo(&buf)
		if tt.ok && err != nil {
			t.Errorf("division %d: unexpected error: %v", tt.division, err)
		}
		if !tt.ok {
			if !errors.Is(err, ErrDivisionRange) {
				t.Errorf("division %d: got %v, want ErrDivisionRange", tt.division, err)
			}
			if buf.Len() != 0 {
				t.Errorf("division %d: wrote % x", tt.division, buf.Bytes())
			}
		}
	}
}

func TestTrackHeader(t *testing.T) {
	var buf bytes.Buffer
	if _, err := (&TrackHeader{Len: 0x01020304}).WriteTo(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{'M', 'T', 'r', 'k', 0x01, 0x02, 0x03, 0x04}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("got % x, want % x", buf.Bytes(), want)
	}
}

type failWriter struct {
	n int
}

func (w *failWriter) Write(p []byte) (int, error) {
	if w.n < len(p) {
		return 0, errors.New("disk full")
	}
	w.n -= len(p)
	return len(p), nil
}

func TestHeaderWriteError(t *testing.T) {
	_, err := (&Header{NumTracks: 1, Division: 96}).WriteTo(&failWriter{n: 6})
	if err == nil || err.Error() != "disk full" {
		t.Errorf("got %v, want disk full", err)
	}
}
