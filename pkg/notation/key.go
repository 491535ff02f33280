package notation

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode is the scale mode of a key
type Mode int

const (
	Major Mode = iota
	Minor
	Percussion
)

func (m Mode) String() string {
	switch m {
	case Minor:
		return "minor"
	case Percussion:
		return "percussion"
	default:
		return "major"
	}
}

// PitchClass is an index 0-11 with C = 0
type PitchClass int

// ReferenceOctave is the octave whose C is MIDI note 60
const ReferenceOctave = 4

var pitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// pitchClasses holds every accepted spelling, sharps and flats alike
var pitchClasses = map[string]PitchClass{
	"C": 0, "C#": 1, "Db": 1, "D": 2, "D#": 3, "Eb": 3,
	"E": 4, "F": 5, "F#": 6, "Gb": 6, "G": 7, "G#": 8,
	"Ab": 8, "A": 9, "A#": 10, "Bb": 10, "B": 11,
}

func (p PitchClass) String() string {
	return pitchClassNames[int(p)%12]
}

// LookupPitchClass resolves a letter plus optional accidental
func LookupPitchClass(name string) (PitchClass, error) {
	pc, ok := pitchClasses[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPitchClass, name)
	}
	return pc, nil
}

// Scale semitone offsets for degrees 1-7
var (
	MajorScale = [7]int{0, 2, 4, 5, 7, 9, 11}
	MinorScale = [7]int{0, 2, 3, 5, 7, 8, 10}
)

// Key is a resolved key signature
type Key struct {
	Root       PitchClass
	Mode       Mode
	OctaveBias int
}

// DefaultKey is C major
var DefaultKey = Key{Root: 0, Mode: Major}

// BasePitch is the MIDI note of degree 1 before the octave bias is applied
func (k Key) BasePitch() int {
	return 60 + int(k.Root)
}

// Scale returns the semitone table of the key, false for percussion keys
func (k Key) Scale() ([7]int, bool) {
	switch k.Mode {
	case Major:
		return MajorScale, true
	case Minor:
		return MinorScale, true
	default:
		return [7]int{}, false
	}
}

// String renders the key in the form accepted by ParseKey
func (k Key) String() string {
	if k.Mode == Percussion {
		return fmt.Sprintf("%s%d", k.Root, ReferenceOctave+k.OctaveBias)
	}
	s := k.Root.String()
	if k.Mode == Minor {
		s += "m"
	}
	if k.OctaveBias > 0 {
		s += "+" + strconv.Itoa(k.OctaveBias)
	} else if k.OctaveBias < 0 {
		s += strconv.Itoa(k.OctaveBias)
	}
	return s
}

// Describe is the human readable form used in warnings, e.g. "C major"
func (k Key) Describe() string {
	if k.Mode == Percussion {
		return fmt.Sprintf("%s (percussion)", k)
	}
	desc := fmt.Sprintf("%s %s", k.Root, k.Mode)
	if k.OctaveBias != 0 {
		desc += fmt.Sprintf(", octave %+d", k.OctaveBias)
	}
	return desc
}

var modeSuffixes = map[string]Mode{
	"":      Major,
	"maj":   Major,
	"major": Major,
	"m":     Minor,
	"min":   Minor,
	"minor": Minor,
}

// ParseKey parses a key such as "C", "F#m", "Bbmajor-1" or the
// percussion form "C5".
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" || !isNoteLetter(s[0]) {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKeyFormat, s)
	}
	letter := strings.ToUpper(s[:1])

	// percussion form: letter followed by octave digits only
	if len(s) > 1 && allDigits(s[1:]) {
		octave, err := strconv.Atoi(s[1:])
		if err != nil {
			return Key{}, fmt.Errorf("%w: %q", ErrInvalidKeyFormat, s)
		}
		root, err := LookupPitchClass(letter)
		if err != nil {
			return Key{}, err
		}
		return Key{Root: root, Mode: Percussion, OctaveBias: octave - ReferenceOctave}, nil
	}

	rest := s[1:]
	name := letter
	if len(rest) > 0 && (rest[0] == '#' || rest[0] == 'b') {
		name += rest[:1]
		rest = rest[1:]
	}

	bias := 0
	if i := strings.IndexAny(rest, "+-"); i >= 0 {
		digits := rest[i+1:]
		if digits == "" || !allDigits(digits) {
			return Key{}, fmt.Errorf("%w: %q", ErrInvalidKeyFormat, s)
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return Key{}, fmt.Errorf("%w: %q", ErrInvalidKeyFormat, s)
		}
		if rest[i] == '-' {
			n = -n
		}
		bias = n
		rest = rest[:i]
	}

	mode, ok := modeSuffixes[strings.ToLower(rest)]
	if !ok {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKeyFormat, s)
	}

	root, err := LookupPitchClass(name)
	if err != nil {
		return Key{}, err
	}
	return Key{Root: root, Mode: mode, OctaveBias: bias}, nil
}

func isNoteLetter(c byte) bool {
	return (c >= 'A' && c <= 'G') || (c >= 'a' && c <= 'g')
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
