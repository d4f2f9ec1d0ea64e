package domain

import "testing"

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"0712345678", "254712345678"},
		{"254712345678", "254712345678"},
		{"+254712345678", "254712345678"},
		{"712345678", "254712345678"},
		{"0110345678", "254110345678"},
		{"0712 345 678", "254712345678"},
		{"0712-345-678", "254712345678"},
	}

	for _, tt := range tests {
		if got := FormatPhone(tt.input); got != tt.want {
			t.Errorf("FormatPhone(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidPhone(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"0712345678", true},
		{"254712345678", true},
		{"+254110345678", true},
		{"712345678", true},
		{"0812345678", false},
		{"07123", false},
		{"2547123456789", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidPhone(tt.input); got != tt.valid {
			t.Errorf("ValidPhone(%q) = %v, want %v", tt.input, got, tt.valid)
		}
	}
}
