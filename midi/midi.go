// Package midi encodes Standard MIDI File chunks and track events.
package midi

import (
	"encoding/binary"
	"errors"
	"io"
)

// MaxDeltaTime is the largest delta-time representable in a 4 byte
// variable-length quantity.
const MaxDeltaTime = 0x0fffffff

var (
	ErrDeltaTimeRange = errors.New("midi: delta-time exceeds 4 byte variable-length quantity")
	ErrDivisionRange  = errors.New("midi: division must be between 1 and 32767 ticks per quarter note")
	ErrTempoRange     = errors.New("midi: tempo out of range")
)

func writeBE(w io.Writer, data interface{}) error {
	return binary.Write(w, binary.BigEndian, data)
}

func writeUvarintBE(w io.Writer, x uint32) (int, error) {
	if x > MaxDeltaTime {
		return 0, ErrDeltaTimeRange
	}
	var buf [4]byte
	n := 1
	for ; x > 0x7f; n++ {
		buf[4-n] = uint8(x & 0x7f)
		x >>= 7
	}
	buf[4-n] = uint8(x)
	for i := 4 - n; i < 3; i++ {
		buf[i] |= 0x80
	}
	return w.Write(buf[4-n:])
}

// Header is the MThd chunk.
type Header struct {
	Format    uint16
	NumTracks uint16
	Division  uint16
}

// Validate reports whether the division describes metrical timing.
// Bit 15 selects SMPTE timing, which this package does not write.
func (h *Header) Validate() error {
	if h.Division == 0 || h.Division&0x8000 != 0 {
		return ErrDivisionRange
	}
	return nil
}

func (h *Header) WriteTo(w io.Writer) (n int64, err error) {
	if err = h.Validate(); err != nil {
		return
	}

	if err = writeBE(w, []byte("MThd")); err != nil {
		return
	}
	n += 4

	if err = writeBE(w, uint32(6)); err != nil {
		return
	}
	n += 4

	if err = writeBE(w, []uint16{
		h.Format,
		h.NumTracks,
		h.Division,
	}); err != nil {
		return
	}
	n += 6
	return
}

// TrackHeader is the MTrk chunk prefix. Len counts the bytes that follow it.
type TrackHeader struct {
	Len uint32
}

func (th *TrackHeader) WriteTo(w io.Writer) (n int64, err error) {
	if err = writeBE(w, []byte("MTrk")); err != nil {
		return
	}
	n += 4

	if err = writeBE(w, th.Len); err != nil {
		return
	}
	n += 4
	return
}

// DeltaTime is the number of ticks since the previous event.
type DeltaTime uint32

func (d DeltaTime) Valid() bool {
	return d <= MaxDeltaTime
}

func (d DeltaTime) Size() int {
	x, n := uint32(d), 1
	for ; x >= 0x80; n++ {
		x >>= 7
	}
	return n
}

func (d DeltaTime) WriteTo(w io.Writer) (int64, error) {
	l, err := writeUvarintBE(w, uint32(d))
	return int64(l), err
}
