package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil slice", nil, nil},
		{"empty slice", []string{}, []string{}},
		{"trims whitespace", []string{"  svc-a  ", "svc-b  "}, []string{"svc-a", "svc-b"}},
		{"removes duplicates preserving order", []string{"b", "a", "b", "c", "a"}, []string{"b", "a", "c"}},
		{"removes empty strings", []string{"a", "", "  ", "b"}, []string{"a", "b"}},
		{"preserves case", []string{"Bank", "bank"}, []string{"Bank", "bank"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimUpper(t *testing.T) {
	assert.Equal(t, []string{"SAVE10", "WELCOME"}, DedupeAndTrimUpper([]string{" save10", "SAVE10 ", "welcome", ""}))
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SPRING25", NormalizeCode("  spring25 "))
	assert.Equal(t, "", NormalizeCode("   "))
}
