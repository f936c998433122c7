package output

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
)

// ProgressBar tracks completed items of a bulk command on one line.
type ProgressBar struct {
	w       io.Writer
	title   string
	total   int
	done    int
	failed  int
	width   int
	enabled bool
	mu      sync.Mutex
}

// NewProgressBar creates a progress bar over total items. A disabled bar
// only counts.
func NewProgressBar(w io.Writer, title string, total int, enabled bool) *ProgressBar {
	return &ProgressBar{
		w:       w,
		title:   title,
		total:   total,
		width:   30,
		enabled: enabled,
	}
}

// Step records one finished item. It is safe for concurrent use and fits
// the batch progress callback.
func (p *ProgressBar) Step(item domain.BatchItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if !item.OK() {
		p.failed++
	}
	p.render()
}

// Counts returns the finished and failed item counts.
func (p *ProgressBar) Counts() (done, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done, p.failed
}

// Finish ends the progress line.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled {
		fmt.Fprint(p.w, "\r\033[K")
	}
}

func (p *ProgressBar) render() {
	if !p.enabled {
		return
	}

	percent := 1.0
	if p.total > 0 {
		percent = float64(p.done) / float64(p.total)
	}
	if percent > 1 {
		percent = 1
	}

	filled := int(float64(p.width) * percent)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)

	fmt.Fprintf(p.w, "\r%s [%s] %d/%d", p.title, bar, p.done, p.total)
	if p.failed > 0 {
		fmt.Fprintf(p.w, " (%d failed)", p.failed)
	}
}
