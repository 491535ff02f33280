package notation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Defaults applied before any directive
const (
	DefaultBPM          = 120
	DefaultTicksPerBeat = 480
	DefaultInstrument   = 0
	MinTicksPerBeat     = 24
	MaxTicksPerBeat     = 960
	MinBPM              = 4 // SMF tempo holds 24 bits of microseconds
	MaxTempo            = 0xFFFFFF
)

// TimeSignature is a meter such as 3/4
type TimeSignature struct {
	Numerator   uint8
	Denominator uint8
}

func (ts TimeSignature) String() string {
	return fmt.Sprintf("%d/%d", ts.Numerator, ts.Denominator)
}

// GlobalDefaults holds the document-wide settings. It is a value type: global
// directives produce a new value and tracks copy it when they are created.
type GlobalDefaults struct {
	Tempo         uint32 // microseconds per beat
	TimeSignature TimeSignature
	Key           Key
	Instrument    uint8
	TicksPerBeat  uint16
	Title         string
}

// NewGlobalDefaults returns 120 BPM, 4/4, C major, program 0, 480 ticks per beat
func NewGlobalDefaults() GlobalDefaults {
	return GlobalDefaults{
		Tempo:         BPMToTempo(DefaultBPM),
		TimeSignature: TimeSignature{Numerator: 4, Denominator: 4},
		Key:           DefaultKey,
		Instrument:    DefaultInstrument,
		TicksPerBeat:  DefaultTicksPerBeat,
	}
}

// BPM returns the tempo in beats per minute
func (g GlobalDefaults) BPM() float64 {
	return TempoToBPM(g.Tempo)
}

// BPMToTempo converts beats per minute to microseconds per beat
func BPMToTempo(bpm int) uint32 {
	return uint32(math.Round(60_000_000 / float64(bpm)))
}

// TempoToBPM converts microseconds per beat to beats per minute
func TempoToBPM(tempo uint32) float64 {
	if tempo == 0 {
		return 0
	}
	return 60_000_000 / float64(tempo)
}

// Directive is a parsed "@key=value" line
type Directive struct {
	Line  int
	Key   string
	Value string
}

// ParseDirective splits a directive line. The key is lower-cased. Values other
// than keys end at the first '#'.
func ParseDirective(line string, lineNum int) (Directive, error) {
	body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "@"))
	key, value, ok := strings.Cut(body, "=")
	key = strings.ToLower(strings.TrimSpace(key))
	if !ok || key == "" {
		return Directive{}, &MetadataError{Line: lineNum, Err: fmt.Errorf("%w: expected @key=value, got %q", ErrMalformedDirective, line)}
	}
	// '#' is a sharp only in key values, anywhere else it starts a comment
	if key != "key" && key != "global_key" {
		value, _, _ = strings.Cut(value, "#")
	}
	return Directive{Line: lineNum, Key: key, Value: strings.TrimSpace(value)}, nil
}

func (d Directive) fail(format string, args ...any) error {
	return &MetadataError{
		Line:  d.Line,
		Key:   d.Key,
		Value: d.Value,
		Err:   fmt.Errorf("%w: %s", ErrInvalidValue, fmt.Sprintf(format, args...)),
	}
}

func (d Directive) failKey(err error) error {
	return &MetadataError{Line: d.Line, Key: d.Key, Value: d.Value, Err: err}
}

// Apply returns a copy of g with a global directive applied. Unknown keys are
// reported as warnings.
func (g GlobalDefaults) Apply(d Directive) (GlobalDefaults, []Warning, error) {
	key := strings.TrimPrefix(d.Key, "global_")
	switch key {
	case "tempo":
		bpm, err := strconv.Atoi(d.Value)
		if err != nil || bpm < MinBPM || BPMToTempo(bpm) > MaxTempo {
			return g, nil, d.fail("tempo must be an integer BPM of at least %d", MinBPM)
		}
		g.Tempo = BPMToTempo(bpm)
	case "time_signature":
		ts, err := parseTimeSignature(d.Value)
		if err != nil {
			return g, nil, d.fail("%v", err)
		}
		g.TimeSignature = ts
	case "key":
		k, err := ParseKey(d.Value)
		if err != nil {
			return g, nil, d.failKey(err)
		}
		g.Key = k
	case "instrument":
		program, err := parseProgram(d.Value)
		if err != nil {
			return g, nil, d.fail("%v", err)
		}
		g.Instrument = program
	case "ticks_per_beat":
		tpb, err := strconv.Atoi(d.Value)
		if err != nil || tpb < MinTicksPerBeat || tpb > MaxTicksPerBeat {
			return g, nil, d.fail("ticks_per_beat must be an integer in %d-%d", MinTicksPerBeat, MaxTicksPerBeat)
		}
		g.TicksPerBeat = uint16(tpb)
	case "name", "title":
		g.Title = d.Value
	default:
		return g, []Warning{{Line: d.Line, Message: fmt.Sprintf("unknown global parameter %q", d.Key)}}, nil
	}
	return g, nil, nil
}

// TrackOverrides records what a track's own directives changed
type TrackOverrides struct {
	Key        *Key
	Instrument *uint8
	Name       string
}

// Apply records a track-scope directive
func (o *TrackOverrides) Apply(d Directive) ([]Warning, error) {
	switch d.Key {
	case "tempo", "time_signature", "ticks_per_beat":
		return []Warning{{Line: d.Line, Message: fmt.Sprintf("track parameter %q is deprecated and ignored, set it globally", d.Key)}}, nil
	case "key":
		k, err := ParseKey(d.Value)
		if err != nil {
			return nil, d.failKey(err)
		}
		o.Key = &k
	case "instrument":
		program, err := parseProgram(d.Value)
		if err != nil {
			return nil, d.fail("%v", err)
		}
		o.Instrument = &program
	case "name":
		o.Name = d.Value
	default:
		return []Warning{{Line: d.Line, Message: fmt.Sprintf("unknown track parameter %q", d.Key)}}, nil
	}
	return nil, nil
}

// Resolve merges the overrides over the global defaults
func (o TrackOverrides) Resolve(g GlobalDefaults) TrackMetadata {
	meta := TrackMetadata{
		Key:          g.Key,
		Instrument:   g.Instrument,
		TicksPerBeat: g.TicksPerBeat,
		Name:         o.Name,
	}
	if o.Key != nil {
		meta.Key = *o.Key
		meta.KeyProvided = true
	}
	if o.Instrument != nil {
		meta.Instrument = *o.Instrument
		meta.InstrumentProvided = true
	}
	return meta
}

// TrackMetadata is the resolved per-track configuration. The Provided flags
// only drive warnings.
type TrackMetadata struct {
	Key                Key
	Instrument         uint8
	TicksPerBeat       uint16
	Name               string
	KeyProvided        bool
	InstrumentProvided bool
}

func parseTimeSignature(v string) (TimeSignature, error) {
	num, den, ok := strings.Cut(v, "/")
	if !ok {
		return TimeSignature{}, errors.New("time_signature must be N/D")
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil || n <= 0 || n > 255 {
		return TimeSignature{}, errors.New("numerator must be an integer in 1-255")
	}
	d, err := strconv.Atoi(strings.TrimSpace(den))
	if err != nil || d <= 0 || d > 128 || d&(d-1) != 0 {
		return TimeSignature{}, errors.New("denominator must be a power of two up to 128")
	}
	return TimeSignature{Numerator: uint8(n), Denominator: uint8(d)}, nil
}

func parseProgram(v string) (uint8, error) {
	program, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("instrument must be an integer")
	}
	if program < 0 || program > 127 {
		return 0, fmt.Errorf("instrument out of range (0-127): %d", program)
	}
	return uint8(program), nil
}
