package savemid

import (
	"fmt"
	"strconv"
	"strings"
)

// Pitch is a MIDI key number, 0 through 127. Middle C (C4) is 60.
type Pitch uint8

const (
	C4 Pitch = 60 + iota
	Cs4
	D4
	Ds4
	E4
	F4
	Fs4
	G4
	Gs4
	A4
	As4
	B4
)

// MaxPitch is the highest MIDI key number.
const MaxPitch Pitch = 127

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func (p Pitch) Valid() bool {
	return p <= MaxPitch
}

func (p Pitch) String() string {
	if !p.Valid() {
		return "Pitch(" + strconv.Itoa(int(p)) + ")"
	}
	return noteNames[p%12] + strconv.Itoa(int(p)/12-1)
}

// Transpose shifts p by semitones.
func (p Pitch) Transpose(semitones int) (Pitch, error) {
	k := int(p) + semitones
	if k < 0 || k > int(MaxPitch) {
		return 0, fmt.Errorf("%w: %v%+d", ErrPitchRange, p, semitones)
	}
	return Pitch(k), nil
}

// ParsePitch reads scientific pitch notation such as "C4", "F#3", "Bb-1".
func ParsePitch(s string) (Pitch, error) {
	name := strings.TrimSpace(s)
	if name == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPitchName, s)
	}

	var n int
	switch name[0] {
	case 'C', 'c':
		n = 0
	case 'D', 'd':
		n = 2
	case 'E', 'e':
		n = 4
	case 'F', 'f':
		n = 5
	case 'G', 'g':
		n = 7
	case 'A', 'a':
		n = 9
	case 'B', 'b':
		n = 11
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidPitchName, s)
	}
	rest := name[1:]
	for len(rest) > 0 && (rest[0] == '#' || rest[0] == 'b') {
		if rest[0] == '#' {
			n++
		} else {
			n--
		}
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPitchName, s)
	}
	k := n + (octave+1)*12
	if k < 0 || k > int(MaxPitch) {
		return 0, fmt.Errorf("%w: %q", ErrPitchRange, s)
	}
	return Pitch(k), nil
}

// MustParsePitch is like ParsePitch but panics on error.
func MustParsePitch(s string) Pitch {
	p, err := ParsePitch(s)
	if err != nil {
		panic(err)
	}
	return p
}
