package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/jianpu2midi/pkg/notation"
)

// Format represents a file format
type Format string

const (
	FormatNotation Format = "jianpu"
	FormatMIDI     Format = "midi"
	FormatUnknown  Format = "unknown"
)

// DetectFormat detects the format of a file based on its extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jianpu", ".nmn", ".txt":
		return FormatNotation
	case ".mid", ".midi":
		return FormatMIDI
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) >= 4 && string(data[:4]) == "MThd" {
		return FormatMIDI
	}
	if len(data) == 0 {
		return FormatUnknown
	}
	return FormatNotation
}

// OutputPath derives the .mid path for an input file
func OutputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".mid"
}

// Parse parses content with the converter's default resolution
func (c *Converter) Parse(content string) (*notation.Document, error) {
	return notation.Parse(content, notation.WithTicksPerBeat(c.opts.TicksPerBeat))
}

// Convert parses, sequences and encodes content. Nothing is returned but the
// error when any step fails.
func (c *Converter) Convert(content string) (*Result, error) {
	doc, err := c.Parse(content)
	if err != nil {
		return nil, err
	}

	tracks, err := SequenceDocument(doc, c.opts.PitchPolicy)
	if err != nil {
		return nil, err
	}

	data, err := Encode(doc.Global, tracks, c.opts.Velocity)
	if err != nil {
		return nil, err
	}

	return &Result{
		Data:     data,
		Document: doc,
		Tracks:   tracks,
		Warnings: doc.Warnings,
	}, nil
}

// ConvertFile converts a notation file to a MIDI file. The output file is
// only created when the conversion succeeds.
func (c *Converter) ConvertFile(inputPath, outputPath string) (*Result, error) {
	if outputPath == "" {
		outputPath = OutputPath(inputPath)
	}
	if DetectFormat(outputPath) != FormatMIDI {
		return nil, errors.New("output file must have a .mid or .midi extension")
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	if DetectFormatFromContent(data) == FormatMIDI {
		return nil, fmt.Errorf("%s is already a MIDI file", inputPath)
	}

	result, err := c.Convert(string(data))
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(outputPath, result.Data, 0644); err != nil {
		return nil, err
	}
	return result, nil
}

// Report is the outcome of validating a document without keeping the output
type Report struct {
	Valid    bool      `json:"valid"`
	Tracks   int       `json:"tracks"`
	Notes    int       `json:"notes"`
	Warnings []string  `json:"warnings"`
	Problems []Problem `json:"problems,omitempty"`
}

// Validate runs the whole pipeline and reports every warning and error
func (c *Converter) Validate(content string) *Report {
	report := &Report{Warnings: []string{}}

	doc, err := c.Parse(content)
	if err != nil {
		report.Problems = Problems(err)
		return report
	}
	for _, w := range doc.Warnings {
		report.Warnings = append(report.Warnings, w.String())
	}
	report.Tracks = len(doc.Tracks)

	tracks, err := SequenceDocument(doc, c.opts.PitchPolicy)
	if err != nil {
		report.Problems = Problems(err)
		return report
	}
	for _, t := range tracks {
		on, _, _ := t.Counts()
		report.Notes += on
	}
	report.Valid = true
	return report
}

// GetSupportedConversions returns a list of supported conversion paths
func GetSupportedConversions() []string {
	return []string{
		"jianpu -> midi",
	}
}
