package converter

import (
	"bytes"
	"fmt"
	"io"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/james-see/jianpu2midi/pkg/notation"
)

// SequenceDocument sequences every track of doc. Errors of all tracks are
// collected into a *DocumentError.
func SequenceDocument(doc *notation.Document, policy notation.PitchPolicy) ([]*Track, error) {
	if doc == nil || len(doc.Tracks) == 0 {
		return nil, ErrEmptyDocument
	}

	tracks := make([]*Track, 0, len(doc.Tracks))
	var failed []*TrackError
	for _, section := range doc.Tracks {
		track, err := Sequence(section, policy)
		if err != nil {
			trackErr, ok := err.(*TrackError)
			if !ok {
				return nil, err
			}
			failed = append(failed, trackErr)
			continue
		}
		tracks = append(tracks, track)
	}

	if len(failed) > 0 {
		return nil, &DocumentError{Tracks: failed}
	}
	return tracks, nil
}

// Encode builds a format 1 SMF: a control track with tempo and time signature,
// then one track per sequenced track.
func Encode(global notation.GlobalDefaults, tracks []*Track, velocity uint8) ([]byte, error) {
	if len(tracks) == 0 {
		return nil, ErrEmptyDocument
	}

	s := smf.NewSMF1()
	s.TimeFormat = smf.MetricTicks(global.TicksPerBeat)

	if err := s.Add(controlTrack(global)); err != nil {
		return nil, fmt.Errorf("failed to add control track: %w", err)
	}

	for _, t := range tracks {
		if err := s.Add(WriteTrack(t, velocity)); err != nil {
			return nil, fmt.Errorf("failed to add track %d: %w", t.Index, err)
		}
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

func controlTrack(global notation.GlobalDefaults) smf.Track {
	var track smf.Track
	if global.Title != "" {
		track.Add(0, smf.MetaTrackSequenceName(global.Title))
	}

	// Tempo meta event (FF 51 03 tt tt tt)
	track.Add(0, smf.Message([]byte{
		0xFF, 0x51, 0x03,
		byte(global.Tempo >> 16),
		byte(global.Tempo >> 8),
		byte(global.Tempo),
	}))
	track.Add(0, smf.MetaTimeSig(global.TimeSignature.Numerator, global.TimeSignature.Denominator, 24, 8))
	track.Close(0)
	return track
}

// Channel picks the MIDI channel of a track. Percussion keys use the GM drum
// channel; other tracks take channels in order, skipping it.
func Channel(index int, key notation.Key) uint8 {
	if key.Mode == notation.Percussion {
		return PercussionChannel
	}
	if index < 1 {
		index = 1
	}
	ch := uint8((index - 1) % 15)
	if ch >= PercussionChannel {
		ch++
	}
	return ch
}

// WriteTrack converts a sequenced track to an SMF track: optional name,
// program change, the events with delta times, end of track.
func WriteTrack(t *Track, velocity uint8) smf.Track {
	if velocity == 0 || velocity > 127 {
		velocity = DefaultVelocity
	}
	channel := Channel(t.Index, t.Metadata.Key)

	var track smf.Track
	if t.Metadata.Name != "" {
		track.Add(0, smf.MetaTrackSequenceName(t.Metadata.Name))
	}
	track.Add(0, midi.ProgramChange(channel, t.Metadata.Instrument))

	var last uint32
	for _, ev := range t.Events {
		delta := ev.Tick - last
		switch ev.Type {
		case NoteOn:
			track.Add(delta, midi.NoteOn(channel, ev.Pitch, velocity))
		case NoteOff:
			track.Add(delta, midi.NoteOff(channel, ev.Pitch))
		case Lyric:
			track.Add(delta, smf.MetaLyric(ev.Text))
		}
		last = ev.Tick
	}

	// trailing rests extend the track
	var tail uint32
	if t.EndTick > last {
		tail = t.EndTick - last
	}
	track.Close(tail)
	return track
}

// TrackSummary describes one track of a MIDI file
type TrackSummary struct {
	Name     string   `json:"name,omitempty"`
	Channel  int      `json:"channel"`
	Program  int      `json:"program"`
	NoteOns  int      `json:"note_ons"`
	NoteOffs int      `json:"note_offs"`
	Lyrics   []string `json:"lyrics,omitempty"`
	Events   int      `json:"events"`
	EndTick  uint32   `json:"end_tick"`
}

// Summary describes a MIDI file
type Summary struct {
	TicksPerBeat  uint16         `json:"ticks_per_beat"`
	BPM           float64        `json:"bpm"`
	TimeSignature string         `json:"time_signature"`
	Tracks        []TrackSummary `json:"tracks"`
}

// InspectReader reads a MIDI file and summarizes it
func InspectReader(r io.Reader) (*Summary, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	summary := &Summary{Tracks: make([]TrackSummary, 0, len(s.Tracks))}
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		summary.TicksPerBeat = mt.Resolution()
	}

	for _, track := range s.Tracks {
		ts := TrackSummary{Channel: -1, Program: -1}
		var currentTick uint32
		for _, ev := range track {
			currentTick += ev.Delta
			ts.Events++
			msg := ev.Message

			// Tempo meta message (FF 51 03 ...)
			if len(msg) >= 6 && msg[0] == 0xFF && msg[1] == 0x51 && msg[2] == 0x03 {
				microsecondsPerBeat := uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])
				summary.BPM = notation.TempoToBPM(microsecondsPerBeat)
				continue
			}
			// Time signature (FF 58 04 nn dd cc bb)
			if len(msg) >= 5 && msg[0] == 0xFF && msg[1] == 0x58 {
				summary.TimeSignature = fmt.Sprintf("%d/%d", msg[3], 1<<msg[4])
				continue
			}
			if name, ok := metaText(msg, 0x03); ok {
				ts.Name = name
				continue
			}
			var lyric string
			if msg.GetMetaLyric(&lyric) {
				ts.Lyrics = append(ts.Lyrics, lyric)
				continue
			}

			if len(msg) < 2 || msg[0] >= 0xF0 {
				continue
			}
			status := msg[0] & 0xF0
			ts.Channel = int(msg[0] & 0x0F)
			switch {
			case status == 0xC0:
				ts.Program = int(msg[1])
			case status == 0x90 && len(msg) >= 3 && msg[2] > 0:
				ts.NoteOns++
			case status == 0x80, status == 0x90 && len(msg) >= 3 && msg[2] == 0:
				ts.NoteOffs++
			}
		}
		ts.EndTick = currentTick
		summary.Tracks = append(summary.Tracks, ts)
	}
	return summary, nil
}

// Inspect summarizes MIDI data
func Inspect(data []byte) (*Summary, error) {
	return InspectReader(bytes.NewReader(data))
}

// metaText decodes a text-like meta event of the given type
func metaText(msg []byte, typ byte) (string, bool) {
	if len(msg) < 3 || msg[0] != 0xFF || msg[1] != typ {
		return "", false
	}
	// variable length quantity
	var n, i int
	for i = 2; i < len(msg); i++ {
		n = n<<7 | int(msg[i]&0x7F)
		if msg[i]&0x80 == 0 {
			i++
			break
		}
	}
	if i+n > len(msg) {
		return "", false
	}
	return string(msg[i : i+n]), true
}
