package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trim spaces",
			input: "  Greenfield Arena  ",
			want:  "Greenfield Arena",
		},
		{
			name:  "multiple spaces between words",
			input: "Greenfield    Arena",
			want:  "Greenfield Arena",
		},
		{
			name:  "tabs and newlines",
			input: "Greenfield\t\nArena",
			want:  "Greenfield Arena",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   \t\n  ",
			want:  "",
		},
		{
			name:  "preserve special characters",
			input: " Café & Turf™ ",
			want:  "Café & Turf™",
		},
		{
			name:  "devanagari characters",
			input: " हरित मैदान ",
			want:  "हरित मैदान",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrimAndNormalize(tt.input)
			if got != tt.want {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{" Asha@Example.COM ", "asha@example.com"},
		{"asha@example.com", "asha@example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeEmail(tt.input); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
