package cmdutils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Out
	Out = &buf
	t.Cleanup(func() { Out = prev })
	return &buf
}

func TestPrintResponse(t *testing.T) {
	buf := capture(t)
	PrintResponse("  Great job!  ")
	assert.Equal(t, "\n🧸 kidslingo\nGreat job!\n\n", buf.String())
}

func TestPrintResponse_Empty(t *testing.T) {
	buf := capture(t)
	PrintResponse("   ")
	assert.Empty(t, buf.String())
}

func TestPrintProgress_MultiLine(t *testing.T) {
	buf := capture(t)
	PrintProgress("Let me look.\n\nsearch_youtube_videos")
	assert.Equal(t, "  ↳ Let me look.\n  ↳ search_youtube_videos\n", buf.String())
}
