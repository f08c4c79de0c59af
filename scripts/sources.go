package scripts

import (
	"strings"
	"sync"
)

// Sources maps source names to their text, for rendering tracebacks.
type Sources struct {
	mu    sync.RWMutex
	lines map[string][]string
}

func NewSources() *Sources {
	return &Sources{
		lines: make(map[string][]string),
	}
}

func (s *Sources) Register(source, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[source] = strings.Split(text, "\n")
}

func (s *Sources) Remove(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lines, source)
}

// Line returns line n (1-based) of source, or "".
func (s *Sources) Line(source string, n int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines := s.lines[source]
	if n < 1 || n > len(lines) {
		return ""
	}
	return lines[n-1]
}
