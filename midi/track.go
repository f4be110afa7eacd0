package midi

import (
	"io"
)

type Event interface {
	io.WriterTo
	Size() int
}

type DeltaTimeEvent struct {
	DeltaTime
	Event Event
}

type Track []DeltaTimeEvent

// Len returns the chunk length: every byte after the MTrk length field.
func (t Track) Len() int {
	ln := 0
	for _, de := range t {
		ln += de.DeltaTime.Size() + de.Event.Size()
	}
	return ln
}

// WriteTo writes the MTrk chunk with its length already computed, so the
// destination never needs to seek back to patch it.
func (t Track) WriteTo(w io.Writer) (int64, error) {
	written, err := (&TrackHeader{Len: uint32(t.Len())}).WriteTo(w)
	if err != nil {
		return written, err
	}

	var l int64
	for _, de := range t {
		l, err = de.DeltaTime.WriteTo(w)
		written += l
		if err != nil {
			return written, err
		}

		l, err = de.Event.WriteTo(w)
		written += l
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

// TrackBuilder collects events, folding pending delta-time into the next
// event added.
type TrackBuilder struct {
	d     uint64
	Track Track
}

// AddEvent appends event at the pending delta-time. The pending delta is
// kept if it does not fit a variable-length quantity.
func (tb *TrackBuilder) AddEvent(event Event) error {
	if tb.d > MaxDeltaTime {
		return ErrDeltaTimeRange
	}
	tb.Track = append(tb.Track, DeltaTimeEvent{
		DeltaTime: DeltaTime(tb.d),
		Event:     event,
	})
	tb.d = 0
	return nil
}

func (tb *TrackBuilder) AddDeltaTime(d uint32) {
	tb.d += uint64(d)
}

// Pending returns the delta-time that the next event will carry.
func (tb *TrackBuilder) Pending() uint64 {
	return tb.d
}
