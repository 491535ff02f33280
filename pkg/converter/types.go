// Package converter turns parsed jianpu documents into Standard MIDI Files
package converter

import (
	"github.com/james-see/jianpu2midi/pkg/notation"
)

// EventType tags a sequenced event
type EventType int

const (
	NoteOn EventType = iota
	NoteOff
	Lyric
)

func (t EventType) String() string {
	switch t {
	case NoteOff:
		return "note_off"
	case Lyric:
		return "lyric"
	default:
		return "note_on"
	}
}

// Event is a single timestamped event of a track
type Event struct {
	Type  EventType
	Tick  uint32 // absolute
	Pitch uint8  // NoteOn/NoteOff
	Text  string // Lyric
	Line  int    // source line of the token
}

// Track is a sequenced track ready for serialization
type Track struct {
	Index    int
	Metadata notation.TrackMetadata
	Events   []Event // sorted by Tick, ties in emission order
	EndTick  uint32  // cursor after the last token
}

// Counts returns the number of note-on, note-off and lyric events
func (t *Track) Counts() (on, off, lyrics int) {
	for _, ev := range t.Events {
		switch ev.Type {
		case NoteOn:
			on++
		case NoteOff:
			off++
		case Lyric:
			lyrics++
		}
	}
	return on, off, lyrics
}

// Default serialization settings
const (
	DefaultVelocity   uint8 = 64
	PercussionChannel uint8 = 9
)

// Options controls parsing and serialization
type Options struct {
	TicksPerBeat uint16 // default resolution, a @ticks_per_beat directive wins
	Velocity     uint8  // note-on velocity, 1-127
	PitchPolicy  notation.PitchPolicy
}

// DefaultOptions returns 480 ticks per beat, velocity 64 and rejection of
// out-of-range pitches
func DefaultOptions() Options {
	return Options{
		TicksPerBeat: notation.DefaultTicksPerBeat,
		Velocity:     DefaultVelocity,
		PitchPolicy:  notation.PitchReject,
	}
}

func (o Options) withDefaults() Options {
	if o.TicksPerBeat == 0 {
		o.TicksPerBeat = notation.DefaultTicksPerBeat
	}
	if o.Velocity == 0 || o.Velocity > 127 {
		o.Velocity = DefaultVelocity
	}
	return o
}

// Result holds the output of a conversion
type Result struct {
	Data     []byte
	Document *notation.Document
	Tracks   []*Track
	Warnings []notation.Warning
}

// Converter converts jianpu text to MIDI
type Converter struct {
	opts Options
}

// New creates a new Converter. Zero fields of opts fall back to DefaultOptions.
func New(opts Options) *Converter {
	return &Converter{opts: opts.withDefaults()}
}

// Options returns the effective options
func (c *Converter) Options() Options {
	return c.opts
}

// SetPitchPolicy changes how out-of-range pitches are handled
func (c *Converter) SetPitchPolicy(p notation.PitchPolicy) {
	c.opts.PitchPolicy = p
}
