package converter

import (
	"fmt"
	"sort"

	"github.com/james-see/jianpu2midi/pkg/notation"
)

// Sequence walks a track's tokens and produces timestamped events. Every token
// is attempted; if any fail, a *TrackError listing all of them is returned.
func Sequence(section notation.TrackSection, policy notation.PitchPolicy) (*Track, error) {
	meta := section.Metadata
	tpb := int(meta.TicksPerBeat)
	if tpb == 0 {
		tpb = notation.DefaultTicksPerBeat
	}

	var (
		events    []Event
		errs      []*notation.TokenError
		cursor    uint32
		lastStart uint32
	)

	for _, tok := range section.Tokens {
		note, err := notation.ParseNote(tok.Text, meta.Key, policy)
		if err != nil {
			errs = append(errs, withLine(err, tok))
			continue
		}

		// a bare lyric belongs to the token before it
		if note.Kind == notation.KindLyric {
			events = append(events, Event{Type: Lyric, Tick: lastStart, Text: note.Lyric, Line: tok.Line})
			continue
		}

		ticks := notation.Ticks(note.Duration, tpb)
		if ticks <= 0 {
			errs = append(errs, &notation.TokenError{
				Line:  tok.Line,
				Token: tok.Text,
				Err: fmt.Errorf("%w: %s beats at %d ticks per beat",
					notation.ErrDegenerateDuration, note.Duration.RatString(), tpb),
			})
			continue
		}
		length := uint32(ticks)

		if note.Pitched {
			events = append(events,
				Event{Type: NoteOn, Tick: cursor, Pitch: note.Pitch, Line: tok.Line},
				Event{Type: NoteOff, Tick: cursor + length, Pitch: note.Pitch, Line: tok.Line},
			)
		}
		if note.HasLyric() {
			events = append(events, Event{Type: Lyric, Tick: cursor, Text: note.Lyric, Line: tok.Line})
		}

		lastStart = cursor
		cursor += length
	}

	if len(errs) > 0 {
		return nil, &TrackError{Track: section.Index, Name: meta.Name, Errors: errs}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Tick < events[j].Tick
	})

	return &Track{
		Index:    section.Index,
		Metadata: meta,
		Events:   events,
		EndTick:  cursor,
	}, nil
}

func withLine(err error, tok notation.NoteToken) *notation.TokenError {
	if tokErr, ok := err.(*notation.TokenError); ok {
		tokErr.Line = tok.Line
		return tokErr
	}
	return &notation.TokenError{Line: tok.Line, Token: tok.Text, Err: err}
}
