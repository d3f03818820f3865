package utils

import (
	"sync"
	"time"
)

// SlidingWindow counts events seen within the trailing window.
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	hits   []time.Time
}

func NewSlidingWindow(window time.Duration) *SlidingWindow {
	return &SlidingWindow{window: window}
}

func (w *SlidingWindow) Add(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)
	w.hits = append(w.hits, now)
	return len(w.hits)
}

func (w *SlidingWindow) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)
	return len(w.hits)
}

// Reset forgets every hit, used once a burst has been punished so the same
// messages are not counted twice.
func (w *SlidingWindow) Reset() {
	w.mu.Lock()
	w.hits = nil
	w.mu.Unlock()
}

func (w *SlidingWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.window)
	idx := 0
	for _, hit := range w.hits {
		if hit.After(cutoff) {
			break
		}
		idx++
	}
	w.hits = w.hits[idx:]
}

// WindowSet holds one SlidingWindow per key.
type WindowSet struct {
	mu      sync.Mutex
	window  time.Duration
	windows map[string]*SlidingWindow
}

func NewWindowSet(window time.Duration) *WindowSet {
	return &WindowSet{window: window, windows: make(map[string]*SlidingWindow)}
}

func (s *WindowSet) Get(key string) *SlidingWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	window := s.windows[key]
	if window == nil {
		window = NewSlidingWindow(s.window)
		s.windows[key] = window
	}
	return window
}

// Sweep drops windows with no hits left at now.
func (s *WindowSet) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, window := range s.windows {
		if window.Count(now) == 0 {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

func (s *WindowSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
