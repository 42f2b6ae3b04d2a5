package progress

import (
	"fmt"
	"io"
	"sync"

	"TNSDigest/internal/ports"
)

// Console renders a single self-overwriting percentage line per phase.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

var _ ports.Progress = (*Console)(nil)

// NewConsole writes progress lines to out (usually stderr).
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Update redraws the phase line.
func (c *Console) Update(phase string, done, total int) {
	if c == nil || c.out == nil || total <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, "\r%s: Progress = %.1f %% ..", phase, float64(done)*100/float64(total))
}

// Finish ends the phase line.
func (c *Console) Finish(phase string) {
	if c == nil || c.out == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, "\r%s: done\n", phase)
}

// Nop discards progress.
type Nop struct{}

var _ ports.Progress = Nop{}

func (Nop) Update(string, int, int) {}
func (Nop) Finish(string)           {}
