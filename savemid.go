// Package savemid writes single-track Standard MIDI Files.
//
// A File writes the header chunk as soon as it is opened and collects track
// events in memory. Close appends the end-of-track event and writes the track
// chunk with its final length, so Close must be called before the output is
// used.
package savemid

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/ishineee/savemid/midi"
)

// DefaultChordVelocity is the velocity used by WriteChord.
const DefaultChordVelocity = 127

var (
	ErrOpen             = errors.New("savemid: cannot open output")
	ErrClosed           = errors.New("savemid: file already closed")
	ErrVelocityRange    = errors.New("savemid: velocity must be between 0 and 127")
	ErrPitchRange       = errors.New("savemid: pitch must be between 0 and 127")
	ErrInvalidPitchName = errors.New("savemid: invalid pitch name")
	ErrUnknownCharset   = errors.New("savemid: unknown charset")
	ErrGroupDuration    = errors.New("savemid: group duration shorter than its note-on span")
)

type options struct {
	logger        *slog.Logger
	chordVelocity uint8
	trackName     string
	text          transform.Transformer
	err           error
}

// Option configures a File.
type Option func(*options)

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithChordVelocity sets the note-on velocity of WriteChord.
func WithChordVelocity(v uint8) Option {
	return func(o *options) {
		o.chordVelocity = v
	}
}

// WithTrackName writes a track name meta-event at the start of the track.
func WithTrackName(name string) Option {
	return func(o *options) {
		o.trackName = name
	}
}

// WithTextEncoding re-encodes track names and lyrics, for example with
// japanese.ShiftJIS.NewEncoder(). Text is written as UTF-8 otherwise.
func WithTextEncoding(t transform.Transformer) Option {
	return func(o *options) {
		o.text = t
	}
}

// WithCharset re-encodes track names and lyrics in the named charset, for
// example "Shift_JIS". Labels are resolved as in HTML.
func WithCharset(label string) Option {
	return func(o *options) {
		e, _ := charset.Lookup(label)
		if e == nil {
			o.err = fmt.Errorf("%w: %q", ErrUnknownCharset, label)
			return
		}
		o.text = e.NewEncoder()
	}
}

// File is a Standard MIDI File being written. It is not safe for concurrent
// use.
type File struct {
	opts options
	log  *slog.Logger

	header midi.Header
	bpm    uint32
	tempo  *midi.TempoEvent
	tb     midi.TrackBuilder

	w      io.Writer
	buf    *bufio.Writer
	c      io.Closer
	n      int64
	closed bool
}

func newFile(bpm uint32, division uint16, opts []Option) (*File, error) {
	o := options{chordVelocity: DefaultChordVelocity}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.err != nil {
		return nil, o.err
	}
	if o.chordVelocity > 127 {
		return nil, fmt.Errorf("%w: chord velocity %d", ErrVelocityRange, o.chordVelocity)
	}

	tempo, err := midi.NewTempoEvent(bpm)
	if err != nil {
		return nil, fmt.Errorf("savemid: %d bpm: %w", bpm, err)
	}
	f := &File{
		opts: o,
		log:  o.logger,
		header: midi.Header{
			Format:    0,
			NumTracks: 1,
			Division:  division,
		},
		bpm:   bpm,
		tempo: tempo,
	}
	if err := f.header.Validate(); err != nil {
		return nil, fmt.Errorf("savemid: division %d: %w", division, err)
	}
	if o.text != nil && o.trackName != "" {
		if _, _, err := transform.String(o.text, o.trackName); err != nil {
			return nil, fmt.Errorf("savemid: encode track name: %w", err)
		}
	}
	return f, nil
}

// Create creates the named file and starts writing a MIDI file to it at the
// given tempo and resolution. The File owns the os.File and closes it in
// Close.
func Create(path string, bpm uint32, division uint16, opts ...Option) (*File, error) {
	f, err := newFile(bpm, division, opts)
	if err != nil {
		return nil, err
	}

	fh, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	f.buf = bufio.NewWriter(fh)
	f.w, f.c = f.buf, fh

	if err := f.start(); err != nil {
		fh.Close()
		return nil, err
	}
	f.log.Debug("created midi file", "path", path)
	return f, nil
}

// New starts writing a MIDI file to w. The caller keeps ownership of w.
func New(w io.Writer, bpm uint32, division uint16, opts ...Option) (*File, error) {
	f, err := newFile(bpm, division, opts)
	if err != nil {
		return nil, err
	}
	f.w = w
	if err := f.start(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) start() error {
	n, err := f.header.WriteTo(f.w)
	f.n += n
	if err != nil {
		return fmt.Errorf("savemid: write header: %w", err)
	}

	if f.opts.trackName != "" {
		if err := f.tb.AddEvent(&midi.TextEvent{
			Type:        midi.TextEventTypeTrackName,
			Text:        f.opts.trackName,
			Transformer: f.opts.text,
		}); err != nil {
			return fmt.Errorf("savemid: track name: %w", err)
		}
	}
	if err := f.tb.AddEvent(f.tempo); err != nil {
		return fmt.Errorf("savemid: tempo: %w", err)
	}

	// the header must be on disk before the first note is added
	if f.buf != nil {
		if err := f.buf.Flush(); err != nil {
			return fmt.Errorf("savemid: write header: %w", err)
		}
	}

	f.log.Debug("started midi track",
		"bpm", f.bpm,
		"usPerQuarter", f.tempo.MicrosecondsPerQuarter,
		"division", f.header.Division)
	return nil
}

// Len returns the number of bytes written to the destination so far.
func (f *File) Len() int64 {
	return f.n
}

func (f *File) add(delta uint32, ev midi.Event) error {
	if f.closed {
		return ErrClosed
	}
	if err := checkDelta(delta); err != nil {
		return err
	}
	f.tb.AddDeltaTime(delta)
	return f.tb.AddEvent(ev)
}

// NoteOn starts pitch delta ticks after the previous event.
func (f *File) NoteOn(delta uint32, pitch Pitch, velocity uint8) error {
	if err := checkNote(pitch, velocity); err != nil {
		return err
	}
	return f.add(delta, &midi.NoteOnEvent{Key: uint8(pitch), Velocity: velocity})
}

// NoteOff releases pitch delta ticks after the previous event.
func (f *File) NoteOff(delta uint32, pitch Pitch) error {
	if err := checkPitch(pitch); err != nil {
		return err
	}
	return f.add(delta, &midi.NoteOffEvent{Key: uint8(pitch)})
}

// AllNotesOff sends the All Notes Off channel mode message.
func (f *File) AllNotesOff(delta uint32) error {
	return f.add(delta, &midi.ControlChangeEvent{Controller: midi.ControllerAllNotesOff})
}

// Lyric writes a lyric meta-event.
func (f *File) Lyric(delta uint32, text string) error {
	if f.opts.text != nil {
		if _, _, err := transform.String(f.opts.text, text); err != nil {
			return fmt.Errorf("savemid: encode lyric: %w", err)
		}
	}
	return f.add(delta, &midi.TextEvent{
		Type:        midi.TextEventTypeLyric,
		Text:        text,
		Transformer: f.opts.text,
	})
}

// Close ends the track, writes the track chunk and, for files opened with
// Create, closes the underlying file. Without Close the output holds only the
// header chunk.
func (f *File) Close() error {
	if f.closed {
		return ErrClosed
	}
	f.closed = true

	err := f.tb.AddEvent(&midi.EndOfTrackEvent{})
	if err == nil {
		var n int64
		n, err = f.tb.Track.WriteTo(f.w)
		f.n += n
	}
	if err == nil && f.buf != nil {
		err = f.buf.Flush()
	}
	if err != nil {
		err = fmt.Errorf("savemid: write track: %w", err)
	}

	if f.c != nil {
		if cerr := f.c.Close(); cerr != nil {
			if err != nil {
				f.log.Warn("close after failed write", "err", cerr)
			}
			err = errors.Join(err, fmt.Errorf("savemid: close: %w", cerr))
		}
	}
	f.log.Debug("closed midi file", "events", len(f.tb.Track), "bytes", f.n, "err", err)
	return err
}

func checkDelta(delta uint32) error {
	if !midi.DeltaTime(delta).Valid() {
		return fmt.Errorf("%w: %d", midi.ErrDeltaTimeRange, delta)
	}
	return nil
}

func checkPitch(p Pitch) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrPitchRange, p)
	}
	return nil
}

func checkNote(p Pitch, velocity uint8) error {
	if err := checkPitch(p); err != nil {
		return err
	}
	if velocity > 127 {
		return fmt.Errorf("%w: %d", ErrVelocityRange, velocity)
	}
	return nil
}
