package timeutil

import (
	"testing"
	"time"
)

func TestParseMinutes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{
			name:  "morning",
			input: "06:00",
			want:  360,
		},
		{
			name:  "midnight",
			input: "00:00",
			want:  0,
		},
		{
			name:  "last minute of day",
			input: "23:59",
			want:  1439,
		},
		{
			name:  "single digit hour",
			input: "9:30",
			want:  570,
		},
		{
			name:    "hour out of range",
			input:   "24:00",
			wantErr: true,
		},
		{
			name:    "minute out of range",
			input:   "10:60",
			wantErr: true,
		},
		{
			name:    "not a time",
			input:   "morning",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMinutes(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseMinutes(%q) expected error, got %d", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMinutes(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseMinutes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "00:00"},
		{360, "06:00"},
		{570, "09:30"},
		{1380, "23:00"},
		{1439, "23:59"},
	}

	for _, tt := range tests {
		if got := FormatMinutes(tt.minutes); got != tt.want {
			t.Errorf("FormatMinutes(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for minutes := 0; minutes < 1440; minutes += 97 {
		got, err := ParseMinutes(FormatMinutes(minutes))
		if err != nil {
			t.Fatalf("round trip of %d failed: %v", minutes, err)
		}
		if got != minutes {
			t.Errorf("round trip of %d returned %d", minutes, got)
		}
	}
}

func TestDateOnly(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	in := time.Date(2026, 9, 15, 2, 30, 0, 0, ist) // 2026-09-14 21:00 UTC

	got := DateOnly(in)
	want := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DateOnly(%v) = %v, want %v", in, got, want)
	}
	if got.Location() != time.UTC {
		t.Errorf("expected UTC, got %v", got.Location())
	}
}
