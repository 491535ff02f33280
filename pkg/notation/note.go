package notation

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// NoteKind tags the shape a token was matched as
type NoteKind int

const (
	KindRest NoteKind = iota
	KindLyric
	KindDegree
	KindPercussion
)

func (k NoteKind) String() string {
	switch k {
	case KindLyric:
		return "lyric"
	case KindDegree:
		return "degree"
	case KindPercussion:
		return "percussion"
	default:
		return "rest"
	}
}

// PitchPolicy decides what happens to pitches outside 0-127
type PitchPolicy int

const (
	PitchReject PitchPolicy = iota
	PitchClamp
)

func (p PitchPolicy) String() string {
	if p == PitchClamp {
		return "clamp"
	}
	return "reject"
}

// ParsePitchPolicy accepts "reject" or "clamp"
func ParsePitchPolicy(s string) (PitchPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return PitchReject, true
	case "clamp":
		return PitchClamp, true
	default:
		return PitchReject, false
	}
}

// ParsedNote is the result of parsing one token
type ParsedNote struct {
	Kind     NoteKind
	Pitch    uint8
	Pitched  bool
	Duration *big.Rat
	Lyric    string
}

// HasLyric reports whether the token carried lyric text
func (n ParsedNote) HasLyric() bool {
	return n.Lyric != ""
}

var (
	restPattern       = regexp.MustCompile(`^0([-.]*)$`)
	degreePattern     = regexp.MustCompile(`^([#b]?)([0-9])([\^_]*)([-.]*)$`)
	percussionPattern = regexp.MustCompile(`^([A-Ga-g])([#b]?)(-?[0-9]+)([-.]*)$`)
)

// ParseNote parses a single token against the active key
func ParseNote(token string, key Key, policy PitchPolicy) (ParsedNote, error) {
	if len(token) >= 2 && token[0] == '"' && token[len(token)-1] == '"' {
		lyric := token[1 : len(token)-1]
		if lyric == "" || strings.Contains(lyric, `"`) {
			return ParsedNote{}, tokenErrorf(token, ErrInvalidNoteFormat, "bad lyric quoting")
		}
		return ParsedNote{Kind: KindLyric, Duration: new(big.Rat).Set(MinDuration), Lyric: lyric}, nil
	}

	head, lyric := token, ""
	if i := strings.IndexByte(token, '"'); i >= 0 {
		head = token[:i]
		quoted := token[i:]
		if len(quoted) < 3 || quoted[len(quoted)-1] != '"' || strings.Contains(quoted[1:len(quoted)-1], `"`) {
			return ParsedNote{}, tokenErrorf(token, ErrInvalidNoteFormat, "bad lyric quoting")
		}
		lyric = quoted[1 : len(quoted)-1]
	}

	note, err := parseHead(head, key, policy)
	if err != nil {
		err.Token = token
		return ParsedNote{}, err
	}
	note.Lyric = lyric
	return note, nil
}

func parseHead(head string, key Key, policy PitchPolicy) (ParsedNote, *TokenError) {
	if strings.HasPrefix(head, "0") {
		m := restPattern.FindStringSubmatch(head)
		if m == nil {
			return ParsedNote{}, tokenErrorf(head, ErrInvalidNoteFormat, "rest must be 0 followed by - or .")
		}
		return ParsedNote{Kind: KindRest, Duration: Duration(m[1])}, nil
	}

	if key.Mode == Percussion {
		return parsePercussion(head, policy)
	}
	return parseDegree(head, key, policy)
}

func parsePercussion(head string, policy PitchPolicy) (ParsedNote, *TokenError) {
	m := percussionPattern.FindStringSubmatch(head)
	if m == nil {
		return ParsedNote{}, tokenErrorf(head, ErrInvalidPercussionNote, "expected a note name such as C5 or F#2")
	}
	pitch, err := NoteNumber(m[1]+m[2], m[3])
	if err != nil {
		return ParsedNote{}, tokenErrorf(head, ErrInvalidPercussionNote, "%v", err)
	}
	p, terr := checkPitch(head, pitch, policy)
	if terr != nil {
		return ParsedNote{}, terr
	}
	return ParsedNote{Kind: KindPercussion, Pitch: p, Pitched: true, Duration: Duration(m[4])}, nil
}

func parseDegree(head string, key Key, policy PitchPolicy) (ParsedNote, *TokenError) {
	m := degreePattern.FindStringSubmatch(head)
	if m == nil {
		return ParsedNote{}, tokenErrorf(head, ErrInvalidNoteFormat, "expected [#|b]degree[^|_][-|.]")
	}
	accidental, octaveMarks, mods := m[1], m[3], m[4]
	degree := int(m[2][0] - '0')
	if degree < 1 || degree > 7 {
		return ParsedNote{}, tokenErrorf(head, ErrDegreeOutOfRange, "got %d", degree)
	}

	scale, _ := key.Scale()
	pitch := key.BasePitch() + key.OctaveBias*12 + scale[degree-1]
	switch accidental {
	case "#":
		pitch++
	case "b":
		pitch--
	}
	shift := strings.Count(octaveMarks, "^") - strings.Count(octaveMarks, "_")
	pitch += shift * 12

	p, terr := checkPitch(head, pitch, policy)
	if terr != nil {
		return ParsedNote{}, terr
	}
	return ParsedNote{Kind: KindDegree, Pitch: p, Pitched: true, Duration: Duration(mods)}, nil
}

func checkPitch(head string, pitch int, policy PitchPolicy) (uint8, *TokenError) {
	if pitch >= 0 && pitch <= 127 {
		return uint8(pitch), nil
	}
	if policy == PitchClamp {
		if pitch < 0 {
			return 0, nil
		}
		return 127, nil
	}
	return 0, tokenErrorf(head, ErrPitchOutOfRange, "got %d", pitch)
}

// NoteNumber resolves a note name and octave to a MIDI note number, C4 = 60
// and C-1 = 0. Octaves longer than two digits are rejected, otherwise the
// result is not range checked.
func NoteNumber(name, octave string) (int, error) {
	if name == "" {
		return 0, ErrUnknownPitchClass
	}
	pc, err := LookupPitchClass(strings.ToUpper(name[:1]) + name[1:])
	if err != nil {
		return 0, err
	}
	if len(strings.TrimPrefix(octave, "-")) > 2 {
		return 0, fmt.Errorf("octave %q out of range", octave)
	}
	n, err := strconv.Atoi(octave)
	if err != nil {
		return 0, err
	}
	return (n+1)*12 + int(pc), nil
}
