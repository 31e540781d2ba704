package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/hupe1980/fabricsync/core"
)

// progressPrinter renders progress steps as "[ 40%] message" lines.
type progressPrinter struct {
	mu    sync.Mutex
	out   io.Writer
	done  int
	style lipgloss.Style
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, style: lipgloss.NewRenderer(out).NewStyle().Faint(true)}
}

// Report implements core.Progress.
func (p *progressPrinter) Report(step core.ProgressStep) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done += step.Increment
	if p.done > 100 {
		p.done = 100
	}
	_, _ = fmt.Fprintf(p.out, "%s %s\n", p.style.Render(fmt.Sprintf("[%3d%%]", p.done)), step.Message)
}
