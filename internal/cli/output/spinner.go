package output

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner displays a progress animation while a request runs. A disabled
// spinner does nothing, so callers need not check for a terminal.
type Spinner struct {
	w        io.Writer
	message  string
	interval time.Duration
	enabled  bool

	mu      sync.Mutex
	running bool
	stopped bool
	done    chan struct{}
	exited  chan struct{}
}

// NewSpinner creates a spinner writing to w.
func NewSpinner(w io.Writer, message string, enabled bool) *Spinner {
	return &Spinner{
		w:        w,
		message:  message,
		interval: 100 * time.Millisecond,
		enabled:  enabled,
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
}

// Start starts the animation. A spinner starts at most once.
func (s *Spinner) Start() *Spinner {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.running || s.stopped {
		return s
	}
	s.running = true
	go s.run()
	return s
}

func (s *Spinner) run() {
	defer close(s.exited)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		fmt.Fprintf(s.w, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], s.message)
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}
	}
}

// Stop stops the spinner and clears the line. It is safe to call more
// than once and on a spinner that never started.
func (s *Spinner) Stop() {
	s.mu.Lock()
	wasRunning := s.running
	s.running = false
	if !s.stopped {
		s.stopped = true
		close(s.done)
	}
	s.mu.Unlock()

	if wasRunning {
		<-s.exited
		fmt.Fprint(s.w, "\r\033[K")
	}
}
