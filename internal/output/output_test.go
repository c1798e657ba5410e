package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, f func()) string {
	t.Helper()
	var buf bytes.Buffer
	SetWriter(&buf)
	defer SetWriter(nil)
	f()
	return buf.String()
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string)
		mark string
	}{
		{"success", Success, "✔"},
		{"error", Error, "❌"},
		{"warn", Warn, "⚠️"},
		{"info", Info, "ℹ️"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := capture(t, func() { tt.fn("Test message") })
			assert.Contains(t, got, tt.mark)
			assert.Contains(t, got, "Test message")
		})
	}
}

func TestStep(t *testing.T) {
	got := capture(t, func() { Step("cd myapp") })
	assert.Contains(t, got, "   cd myapp")
}

func TestVerbose(t *testing.T) {
	defer SetVerbose(false)

	SetVerbose(false)
	assert.Empty(t, capture(t, func() { Verbose("hidden") }))

	SetVerbose(true)
	assert.Contains(t, capture(t, func() { Verbose("shown") }), "shown")
}
