package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleRendersPercentages(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.Update("Getting object details", 1, 8)
	c.Update("Getting object details", 8, 8)
	c.Update("ignored", 1, 0)
	c.Finish("Getting object details")

	out := buf.String()
	assert.Contains(t, out, "Getting object details: Progress = 12.5 % ..")
	assert.Contains(t, out, "Progress = 100.0 % ..")
	assert.NotContains(t, out, "ignored")
	assert.Contains(t, out, "Getting object details: done\n")
}
