package notation

import (
	"errors"
	"fmt"
)

// Key errors
var (
	ErrInvalidKeyFormat  = errors.New("invalid key format")
	ErrUnknownPitchClass = errors.New("unknown pitch class")
)

// Token errors
var (
	ErrInvalidNoteFormat     = errors.New("invalid note format")
	ErrInvalidPercussionNote = errors.New("invalid percussion note")
	ErrPitchOutOfRange       = errors.New("pitch out of range (0-127)")
	ErrDegreeOutOfRange      = errors.New("scale degree out of range (1-7)")
	ErrDegenerateDuration    = errors.New("duration rounds to zero ticks")
)

// Metadata errors
var (
	ErrMalformedDirective = errors.New("malformed directive")
	ErrInvalidValue       = errors.New("invalid value")
)

// Category groups token errors for reporting
type Category string

const (
	CategoryNoteFormat Category = "note_format"
	CategoryRange      Category = "range"
)

// MetadataError reports a malformed directive. It aborts the parse.
type MetadataError struct {
	Line  int
	Key   string
	Value string
	Err   error
}

func (e *MetadataError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: @%s=%s: %v", e.Line, e.Key, e.Value, e.Err)
}

func (e *MetadataError) Unwrap() error {
	return e.Err
}

// TokenError reports a single note token that could not be turned into events.
// Line is 0 when the token was parsed without document context.
type TokenError struct {
	Line  int
	Token string
	Err   error
}

func (e *TokenError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %q: %v", e.Line, e.Token, e.Err)
	}
	return fmt.Sprintf("%q: %v", e.Token, e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// Category returns CategoryRange for bound violations and CategoryNoteFormat otherwise
func (e *TokenError) Category() Category {
	switch {
	case errors.Is(e.Err, ErrPitchOutOfRange),
		errors.Is(e.Err, ErrDegreeOutOfRange),
		errors.Is(e.Err, ErrDegenerateDuration):
		return CategoryRange
	default:
		return CategoryNoteFormat
	}
}

func tokenErrorf(token string, cause error, format string, args ...any) *TokenError {
	return &TokenError{
		Token: token,
		Err:   fmt.Errorf("%w: %s", cause, fmt.Sprintf(format, args...)),
	}
}
