package notation

import (
	"errors"
	"testing"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		input    string
		expected Key
	}{
		{"C", Key{Root: 0, Mode: Major}},
		{"c", Key{Root: 0, Mode: Major}},
		{"G", Key{Root: 7, Mode: Major}},
		{"Am", Key{Root: 9, Mode: Minor}},
		{"AM", Key{Root: 9, Mode: Minor}},
		{"Amin", Key{Root: 9, Mode: Minor}},
		{"Aminor", Key{Root: 9, Mode: Minor}},
		{"Cmaj", Key{Root: 0, Mode: Major}},
		{"Cmajor", Key{Root: 0, Mode: Major}},
		{"F#m", Key{Root: 6, Mode: Minor}},
		{"Bb", Key{Root: 10, Mode: Major}},
		{"bb", Key{Root: 10, Mode: Major}},
		{"Ebm-1", Key{Root: 3, Mode: Minor, OctaveBias: -1}},
		{"D+2", Key{Root: 2, Mode: Major, OctaveBias: 2}},
		{" G ", Key{Root: 7, Mode: Major}},
		{"C5", Key{Root: 0, Mode: Percussion, OctaveBias: 1}},
		{"C4", Key{Root: 0, Mode: Percussion, OctaveBias: 0}},
		{"A2", Key{Root: 9, Mode: Percussion, OctaveBias: -2}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseKey(tt.input)
			if err != nil {
				t.Fatalf("ParseKey(%q) error = %v", tt.input, err)
			}
			if result != tt.expected {
				t.Errorf("ParseKey(%q) = %+v, want %+v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseKeyEnharmonic(t *testing.T) {
	pairs := [][2]string{{"C#", "Db"}, {"D#", "Eb"}, {"F#", "Gb"}, {"G#", "Ab"}, {"A#", "Bb"}}
	for _, p := range pairs {
		a, err := ParseKey(p[0])
		if err != nil {
			t.Fatalf("ParseKey(%q) error = %v", p[0], err)
		}
		b, err := ParseKey(p[1])
		if err != nil {
			t.Fatalf("ParseKey(%q) error = %v", p[1], err)
		}
		if a != b {
			t.Errorf("%s = %+v, %s = %+v, want equal", p[0], a, p[1], b)
		}
	}
}

func TestParseKeyErrors(t *testing.T) {
	tests := []struct {
		input    string
		expected error
	}{
		{"", ErrInvalidKeyFormat},
		{"H", ErrInvalidKeyFormat},
		{"Cx", ErrInvalidKeyFormat},
		{"C+", ErrInvalidKeyFormat},
		{"Cm+x", ErrInvalidKeyFormat},
		{"Cmajorm", ErrInvalidKeyFormat},
		{"1", ErrInvalidKeyFormat},
		{"Cb", ErrUnknownPitchClass},
		{"E#", ErrUnknownPitchClass},
		{"Fbm", ErrUnknownPitchClass},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseKey(tt.input)
			if !errors.Is(err, tt.expected) {
				t.Errorf("ParseKey(%q) error = %v, want %v", tt.input, err, tt.expected)
			}
		})
	}
}

func TestKeyString(t *testing.T) {
	tests := []struct {
		key      Key
		expected string
	}{
		{Key{Root: 0, Mode: Major}, "C"},
		{Key{Root: 9, Mode: Minor}, "Am"},
		{Key{Root: 6, Mode: Minor, OctaveBias: 1}, "F#m+1"},
		{Key{Root: 10, Mode: Major, OctaveBias: -2}, "A#-2"},
		{Key{Root: 0, Mode: Percussion, OctaveBias: 1}, "C5"},
	}

	for _, tt := range tests {
		if got := tt.key.String(); got != tt.expected {
			t.Errorf("Key%+v.String() = %q, want %q", tt.key, got, tt.expected)
		}
		back, err := ParseKey(tt.key.String())
		if err != nil || back != tt.key {
			t.Errorf("ParseKey(%q) = %+v, %v; want %+v", tt.key.String(), back, err, tt.key)
		}
	}
}

func TestKeyScale(t *testing.T) {
	if s, ok := (Key{Mode: Major}).Scale(); !ok || s != MajorScale {
		t.Errorf("major Scale() = %v, %v", s, ok)
	}
	if s, ok := (Key{Mode: Minor}).Scale(); !ok || s != MinorScale {
		t.Errorf("minor Scale() = %v, %v", s, ok)
	}
	if _, ok := (Key{Mode: Percussion}).Scale(); ok {
		t.Error("percussion key should have no scale")
	}
}
