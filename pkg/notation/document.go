// Package notation parses jianpu (numbered musical notation) text into a
// structured document of tracks and note tokens.
//
// A document starts with global directives, followed by one or more track
// sections:
//
//	@tempo=96
//	@key=G
//	[track melody]
//	@instrument=73
//	1 2 3- 3- | 5. 3- 2 0 | 1^ "la"
package notation

import (
	"fmt"
	"strings"
	"unicode"
)

// NoteToken is a raw token together with the line it came from
type NoteToken struct {
	Text string
	Line int
}

// Warning is a non-fatal diagnostic. Line and Track are 0 when unknown.
type Warning struct {
	Line    int
	Track   int
	Message string
}

func (w Warning) String() string {
	switch {
	case w.Line > 0:
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	case w.Track > 0:
		return fmt.Sprintf("track %d: %s", w.Track, w.Message)
	default:
		return w.Message
	}
}

// TrackSection is a parsed [track] section
type TrackSection struct {
	Index    int // 1-based
	Line     int // line of the section header
	Metadata TrackMetadata
	Tokens   []NoteToken
}

// Document is the result of one parse pass
type Document struct {
	Global   GlobalDefaults
	Tracks   []TrackSection
	Warnings []Warning
}

// Option configures Parse
type Option func(*GlobalDefaults)

// WithTicksPerBeat sets the resolution used unless a ticks_per_beat directive overrides it
func WithTicksPerBeat(tpb uint16) Option {
	return func(g *GlobalDefaults) {
		if tpb > 0 {
			g.TicksPerBeat = tpb
		}
	}
}

type parseState int

const (
	inGlobalSection parseState = iota
	inTrack
)

type pendingTrack struct {
	index     int
	line      int
	overrides TrackOverrides
	tokens    []NoteToken
}

// Parse reads a whole document. Metadata errors abort the parse; note tokens
// are not validated here.
func Parse(content string, opts ...Option) (*Document, error) {
	global := NewGlobalDefaults()
	for _, opt := range opts {
		opt(&global)
	}

	var (
		state    = inGlobalSection
		pending  []*pendingTrack
		current  *pendingTrack
		warnings []Warning
	)

	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	for i, raw := range lines {
		lineNum := i + 1
		line := strings.TrimSpace(StripComment(raw))
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") {
			name, ok := trackHeader(line)
			if !ok {
				warnings = append(warnings, Warning{Line: lineNum, Message: fmt.Sprintf("unknown section %s ignored", line)})
				continue
			}
			state = inTrack
			current = &pendingTrack{index: len(pending) + 1, line: lineNum}
			current.overrides.Name = name
			pending = append(pending, current)
			continue
		}

		isDirective := strings.HasPrefix(line, "@")
		switch state {
		case inGlobalSection:
			if !isDirective {
				warnings = append(warnings, Warning{Line: lineNum, Message: "notes outside of a [track] section ignored"})
				continue
			}
			d, err := ParseDirective(line, lineNum)
			if err != nil {
				return nil, err
			}
			next, ws, err := global.Apply(d)
			if err != nil {
				return nil, err
			}
			global = next
			warnings = append(warnings, ws...)
		case inTrack:
			if isDirective {
				d, err := ParseDirective(line, lineNum)
				if err != nil {
					return nil, err
				}
				ws, err := current.overrides.Apply(d)
				if err != nil {
					return nil, err
				}
				for j := range ws {
					ws[j].Track = current.index
				}
				warnings = append(warnings, ws...)
				continue
			}
			for _, text := range Tokenize(line) {
				current.tokens = append(current.tokens, NoteToken{Text: text, Line: lineNum})
			}
		}
	}

	doc := &Document{Global: global, Tracks: make([]TrackSection, 0, len(pending))}
	for _, p := range pending {
		doc.Tracks = append(doc.Tracks, TrackSection{
			Index:    p.index,
			Line:     p.line,
			Metadata: p.overrides.Resolve(global),
			Tokens:   p.tokens,
		})
	}
	doc.Warnings = append(warnings, inheritanceWarnings(doc)...)
	return doc, nil
}

func inheritanceWarnings(doc *Document) []Warning {
	var ws []Warning
	for _, t := range doc.Tracks {
		if !t.Metadata.KeyProvided {
			ws = append(ws, Warning{
				Track:   t.Index,
				Message: fmt.Sprintf("inherits global key (%s)", t.Metadata.Key.Describe()),
			})
		}
		if !t.Metadata.InstrumentProvided {
			ws = append(ws, Warning{
				Track:   t.Index,
				Message: fmt.Sprintf("inherits global instrument %d (%s)", t.Metadata.Instrument, InstrumentName(t.Metadata.Instrument)),
			})
		}
	}
	return ws
}

// trackHeader reports whether line opens a track and returns the name written
// after "[track", as in "[track melody]" or "[track: bass]".
func trackHeader(line string) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(line), "[track") {
		return "", false
	}
	rest := line[len("[track"):]
	if i := strings.IndexByte(rest, ']'); i >= 0 {
		rest = rest[:i]
	}
	// "[track2]" and "[tracks]" carry no name
	if rest == "" || !strings.ContainsAny(rest[:1], " \t:=") {
		return "", true
	}
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(rest), ":=")), true
}

// StripComment removes comments. A line whose first non-blank character is
// '#' is a comment. Later on the line, a '#' starts a comment when it begins a
// whitespace-separated word and is not followed by a digit, which keeps
// sharps such as "| #4" and "C#" intact. Quoted text is never a comment.
func StripComment(line string) string {
	if strings.HasPrefix(strings.TrimSpace(line), "#") {
		return ""
	}
	inQuote := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuote = !inQuote
		case c == '#' && !inQuote:
			if i > 0 && line[i-1] != ' ' && line[i-1] != '\t' {
				continue
			}
			if i+1 < len(line) && line[i+1] >= '0' && line[i+1] <= '9' {
				continue
			}
			return line[:i]
		}
	}
	return line
}

// Tokenize splits a note line on whitespace and '|' bar lines. Quoted lyrics
// may contain spaces and stay attached to the token they follow.
func Tokenize(line string) []string {
	var (
		tokens  []string
		b       strings.Builder
		inQuote bool
	)
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			b.WriteRune(r)
		case inQuote:
			b.WriteRune(r)
		case r == '|' || unicode.IsSpace(r):
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return tokens
}
