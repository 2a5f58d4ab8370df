package model

import "testing"

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already normalized", "ACME", "ACME"},
		{"lowercase", "acme", "ACME"},
		{"mixed case", "AcMe", "ACME"},
		{"surrounding whitespace", "  acme \n", "ACME"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeSymbol(tt.input); got != tt.want {
				t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
