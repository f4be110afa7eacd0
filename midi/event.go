package midi

import (
	"io"

	"golang.org/x/text/transform"
)

const (
	statusNoteOff       = 0x80
	statusNoteOn        = 0x90
	statusControlChange = 0xb0
	statusMeta          = 0xff

	metaTempo      = 0x51
	metaEndOfTrack = 0x2f

	// ControllerAllNotesOff is the channel mode message that silences every
	// sounding note on the channel.
	ControllerAllNotesOff = 0x7b
)

type NoteOnEvent struct {
	Channel  uint8
	Key      uint8
	Velocity uint8
}

func (no *NoteOnEvent) Size() int {
	return 3
}

func (no *NoteOnEvent) WriteTo(w io.Writer) (int64, error) {
	if err := writeBE(w, []byte{
		statusNoteOn | (no.Channel & 0x0f),
		no.Key & 0x7f,
		no.Velocity & 0x7f,
	}); err != nil {
		return 0, err
	}
	return 3, nil
}

// NoteOffEvent always releases with velocity 0.
type NoteOffEvent struct {
	Channel uint8
	Key     uint8
}

func (no *NoteOffEvent) Size() int {
	return 3
}

func (no *NoteOffEvent) WriteTo(w io.Writer) (int64, error) {
	if err := writeBE(w, []byte{
		statusNoteOff | (no.Channel & 0x0f),
		no.Key & 0x7f,
		0,
	}); err != nil {
		return 0, err
	}
	return 3, nil
}

type ControlChangeEvent struct {
	Channel    uint8
	Controller uint8
	Value      uint8
}

func (cc *ControlChangeEvent) Size() int {
	return 3
}

func (cc *ControlChangeEvent) WriteTo(w io.Writer) (int64, error) {
	if err := writeBE(w, []byte{
		statusControlChange | (cc.Channel & 0x0f),
		cc.Controller & 0x7f,
		cc.Value & 0x7f,
	}); err != nil {
		return 0, err
	}
	return 3, nil
}

// TempoEvent sets the tempo in microseconds per quarter note.
// Only the low 24 bits are written.
type TempoEvent struct {
	MicrosecondsPerQuarter uint32
}

// NewTempoEvent converts beats per minute to a tempo event using integer
// division, as the file format stores whole microseconds.
func NewTempoEvent(bpm uint32) (*TempoEvent, error) {
	if bpm == 0 {
		return nil, ErrTempoRange
	}
	us := 60000000 / bpm
	if us == 0 || us > 0xffffff {
		return nil, ErrTempoRange
	}
	return &TempoEvent{MicrosecondsPerQuarter: us}, nil
}

func (te *TempoEvent) Size() int {
	return 6
}

func (te *TempoEvent) WriteTo(w io.Writer) (int64, error) {
	us := te.MicrosecondsPerQuarter
	if err := writeBE(w, []byte{
		statusMeta,
		metaTempo,
		0x03,
		uint8((us >> 16) & 0xff),
		uint8((us >> 8) & 0xff),
		uint8(us & 0xff),
	}); err != nil {
		return 0, err
	}
	return 6, nil
}

type TextEvent struct {
	Type        TextEventType
	Text        string
	Transformer transform.Transformer
}
type TextEventType uint8

const (
	TextEventTypeTrackName = TextEventType(0x03)
	TextEventTypeLyric     = TextEventType(0x05)
)

func (te *TextEvent) bytes() ([]byte, error) {
	if te.Transformer == nil {
		return []byte(te.Text), nil
	}
	buf, _, err := transform.Bytes(te.Transformer, []byte(te.Text))
	return buf, err
}

func (te *TextEvent) Size() int {
	buf, _ := te.bytes()
	return 2 + DeltaTime(len(buf)).Size() + len(buf)
}

func (te *TextEvent) WriteTo(w io.Writer) (n int64, err error) {
	buf, err := te.bytes()
	if err != nil {
		return
	}

	if err = writeBE(w, []byte{
		statusMeta,
		uint8(te.Type),
	}); err != nil {
		return
	}
	n += 2

	l, err := writeUvarintBE(w, uint32(len(buf)))
	if err != nil {
		return
	}
	n += int64(l)

	if err = writeBE(w, buf); err != nil {
		return
	}
	n += int64(len(buf))
	return
}

type EndOfTrackEvent struct {
}

func (eote *EndOfTrackEvent) Size() int {
	return 3
}

func (eote *EndOfTrackEvent) WriteTo(w io.Writer) (int64, error) {
	if err := writeBE(w, []byte{
		statusMeta,
		metaEndOfTrack,
		0x00,
	}); err != nil {
		return 0, err
	}
	return 3, nil
}
