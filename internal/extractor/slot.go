package extractor

import "sync"

// ResultSlot is a single-assignment holder written from progress callbacks.
// Only the first Set is kept; read it after the extractor call returns.
type ResultSlot struct {
	mu    sync.Mutex
	value string
	set   bool
}

// Set stores v if the slot is still empty and reports whether it did
func (s *ResultSlot) Set(v string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.set {
		return false
	}
	s.value = v
	s.set = true
	return true
}

// Get returns the stored value and whether one was set
func (s *ResultSlot) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.set
}
