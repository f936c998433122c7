package output

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestSpinner_StartStop(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, "Restarting", true)
	s.interval = 5 * time.Millisecond

	s.Start()
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "Restarting") {
		t.Errorf("spinner message missing: %q", out)
	}
	if !strings.HasSuffix(out, "\r\033[K") {
		t.Errorf("spinner line not cleared: %q", out)
	}

	// No writes after Stop returns.
	n := len(buf.String())
	time.Sleep(20 * time.Millisecond)
	if len(buf.String()) != n {
		t.Error("spinner kept writing after Stop()")
	}
}

func TestSpinner_Disabled(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, "Loading", false).Start()
	time.Sleep(10 * time.Millisecond)
	s.Stop()

	if buf.String() != "" {
		t.Errorf("disabled spinner wrote %q", buf.String())
	}
}

func TestSpinner_StopIdempotent(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, "x", true)

	s.Stop()
	s.Stop()
	s.Start()
	if buf.String() != "" {
		t.Errorf("stopped spinner started: %q", buf.String())
	}

	s2 := NewSpinner(&buf, "y", true).Start()
	s2.Stop()
	s2.Stop()
}
