package services

import "testing"

func TestFulltextSearchTerm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"all tokens quoted", "technology trends", `"technology" "trends"`},
		{"single-char token dropped", "vitamin c", `"vitamin"`},
		{"single-char token dropped mid-query", "go x routines", `"go" "routines"`},
		{"single multi-byte rune dropped", "café é", `"café"`},
		{"two-char tokens kept", "go ai", `"go" "ai"`},
		{"only single-char tokens", "a b c", ""},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fulltextSearchTerm(tt.input); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
