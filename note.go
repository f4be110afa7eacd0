package savemid

import (
	"fmt"

	"github.com/ishineee/savemid/midi"
)

// TimedNote is a note whose timing is relative to the event before it.
type TimedNote struct {
	Start    uint32 // ticks from the previous event to note-on
	End      uint32 // ticks from note-on to note-off
	Pitch    Pitch
	Velocity uint8
}

// Overlap says how the notes of a NoteGroup relate in time. When Overlapping
// is set all notes are held and released together Duration ticks after the
// group starts.
type Overlap struct {
	Overlapping bool
	Duration    int64
}

type NoteGroup struct {
	Overlap Overlap
	Notes   []TimedNote
}

// releaseDelta is the delta of the first note-off of an overlapping group.
func (g *NoteGroup) releaseDelta() (uint32, error) {
	var span int64
	for _, n := range g.Notes {
		span += int64(n.Start)
	}
	d := g.Overlap.Duration - span
	if d < 0 {
		return 0, fmt.Errorf("%w: duration %d, note-on span %d", ErrGroupDuration, g.Overlap.Duration, span)
	}
	if d > midi.MaxDeltaTime {
		return 0, fmt.Errorf("%w: %d", midi.ErrDeltaTimeRange, d)
	}
	return uint32(d), nil
}

func checkNotes(notes []TimedNote) error {
	for i, n := range notes {
		if err := checkNote(n.Pitch, n.Velocity); err != nil {
			return fmt.Errorf("note %d: %w", i, err)
		}
		if err := checkDelta(n.Start); err != nil {
			return fmt.Errorf("note %d: %w", i, err)
		}
		if err := checkDelta(n.End); err != nil {
			return fmt.Errorf("note %d: %w", i, err)
		}
	}
	return nil
}

// WriteNotes plays notes one after another: each note-on is followed by its
// own note-off.
func (f *File) WriteNotes(notes ...TimedNote) error {
	if f.closed {
		return ErrClosed
	}
	if err := checkNotes(notes); err != nil {
		return err
	}
	return f.writeNotes(notes)
}

func (f *File) writeNotes(notes []TimedNote) error {
	for _, n := range notes {
		if err := f.NoteOn(n.Start, n.Pitch, n.Velocity); err != nil {
			return err
		}
		if err := f.NoteOff(n.End, n.Pitch); err != nil {
			return err
		}
	}
	return nil
}

// WriteChord starts every pitch at once and releases them all endDelta ticks
// later.
func (f *File) WriteChord(endDelta uint32, pitches ...Pitch) error {
	if f.closed {
		return ErrClosed
	}
	if err := checkDelta(endDelta); err != nil {
		return err
	}
	for _, p := range pitches {
		if err := checkPitch(p); err != nil {
			return err
		}
	}

	for _, p := range pitches {
		if err := f.NoteOn(0, p, f.opts.chordVelocity); err != nil {
			return err
		}
	}
	return f.release(endDelta, pitches)
}

// release sends note-offs for pitches in order, all at the same tick.
func (f *File) release(delta uint32, pitches []Pitch) error {
	for i, p := range pitches {
		d := delta
		if i > 0 {
			d = 0
		}
		if err := f.NoteOff(d, p); err != nil {
			return err
		}
	}
	return nil
}

// WriteGroups writes each group in turn. Notes of an overlapping group are
// started at their Start offsets and released together when the group's
// Duration has elapsed; other groups behave like WriteNotes.
func (f *File) WriteGroups(groups ...NoteGroup) error {
	if f.closed {
		return ErrClosed
	}
	releases := make([]uint32, len(groups))
	for i := range groups {
		g := &groups[i]
		if err := checkNotes(g.Notes); err != nil {
			return fmt.Errorf("group %d: %w", i, err)
		}
		if !g.Overlap.Overlapping {
			continue
		}
		d, err := g.releaseDelta()
		if err != nil {
			return fmt.Errorf("group %d: %w", i, err)
		}
		releases[i] = d
	}

	for i, g := range groups {
		if !g.Overlap.Overlapping {
			if err := f.writeNotes(g.Notes); err != nil {
				return err
			}
			continue
		}
		pitches := make([]Pitch, len(g.Notes))
		for j, n := range g.Notes {
			if err := f.NoteOn(n.Start, n.Pitch, n.Velocity); err != nil {
				return err
			}
			pitches[j] = n.Pitch
		}
		if err := f.release(releases[i], pitches); err != nil {
			return err
		}
	}
	return nil
}
