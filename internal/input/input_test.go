package input

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfirmFrom(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		defaultYes bool
		want       bool
	}{
		{"yes", "y\n", false, true},
		{"YES uppercase", "YES\n", false, true},
		{"no", "n\n", true, false},
		{"empty uses default yes", "\n", true, true},
		{"empty uses default no", "\n", false, false},
		{"eof uses default", "", true, true},
		{"no trailing newline", "yes", false, true},
		{"garbage is no", "maybe\n", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConfirmFrom(strings.NewReader(tt.input), io.Discard, "Continue?", tt.defaultYes)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfirmFrom_Hint(t *testing.T) {
	var out strings.Builder
	ConfirmFrom(strings.NewReader("\n"), &out, "Delete?", true)
	assert.Contains(t, out.String(), "Delete?")
	assert.Contains(t, out.String(), "[Y/n]")
}
