package converter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/james-see/jianpu2midi/pkg/notation"
)

// ErrEmptyDocument is returned when a document has no [track] section
var ErrEmptyDocument = errors.New("document has no tracks")

// TrackError aggregates every bad token of one track
type TrackError struct {
	Track  int
	Name   string
	Errors []*notation.TokenError
}

func (e *TrackError) Error() string {
	label := fmt.Sprintf("track %d", e.Track)
	if e.Name != "" {
		label = fmt.Sprintf("track %d (%s)", e.Track, e.Name)
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%s: %d invalid notes: %s", label, len(e.Errors), strings.Join(msgs, "; "))
}

func (e *TrackError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}

// DocumentError aggregates the errors of every failing track
type DocumentError struct {
	Tracks []*TrackError
}

func (e *DocumentError) Error() string {
	msgs := make([]string, len(e.Tracks))
	for i, err := range e.Tracks {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

func (e *DocumentError) Unwrap() []error {
	errs := make([]error, len(e.Tracks))
	for i, err := range e.Tracks {
		errs[i] = err
	}
	return errs
}

// TokenErrors flattens the token errors of all tracks in source order
func (e *DocumentError) TokenErrors() []*notation.TokenError {
	var out []*notation.TokenError
	for _, t := range e.Tracks {
		out = append(out, t.Errors...)
	}
	return out
}

// Problem is a flat, serializable description of one error
type Problem struct {
	Category string `json:"category"`
	Line     int    `json:"line,omitempty"`
	Track    int    `json:"track,omitempty"`
	Token    string `json:"token,omitempty"`
	Message  string `json:"message"`
}

// Problem categories besides the token categories
const (
	CategoryMetadata   = "metadata"
	CategoryStructural = "structural"
	CategoryOther      = "other"
)

// Problems flattens an error returned by Convert into one entry per problem
func Problems(err error) []Problem {
	if err == nil {
		return nil
	}

	var docErr *DocumentError
	if errors.As(err, &docErr) {
		var out []Problem
		for _, t := range docErr.Tracks {
			for _, tokErr := range t.Errors {
				out = append(out, Problem{
					Category: string(tokErr.Category()),
					Line:     tokErr.Line,
					Track:    t.Track,
					Token:    tokErr.Token,
					Message:  tokErr.Err.Error(),
				})
			}
		}
		return out
	}

	var metaErr *notation.MetadataError
	if errors.As(err, &metaErr) {
		return []Problem{{Category: CategoryMetadata, Line: metaErr.Line, Message: metaErr.Error()}}
	}

	if errors.Is(err, ErrEmptyDocument) {
		return []Problem{{Category: CategoryStructural, Message: err.Error()}}
	}

	return []Problem{{Category: CategoryOther, Message: err.Error()}}
}
