package logging

import (
	"sync"
)

// ErrorSampler throttles logs for errors that repeat under the same key,
// such as a backend resource that keeps failing. It reports the first
// occurrence and then every Nth one; Reset after a success so the next
// failure is reported immediately.
type ErrorSampler struct {
	mu       sync.Mutex
	counts   map[string]int
	interval int
}

// NewErrorSampler returns a sampler reporting every interval-th occurrence.
// An interval below 1 defaults to 10.
func NewErrorSampler(interval int) *ErrorSampler {
	if interval < 1 {
		interval = 10
	}
	return &ErrorSampler{
		counts:   make(map[string]int),
		interval: interval,
	}
}

// Sample records one occurrence of key. It returns whether the occurrence
// should be logged and how many occurrences have been seen so far.
func (s *ErrorSampler) Sample(key string) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[key]++
	n := s.counts[key]
	return n == 1 || n%s.interval == 0, n
}

// ShouldLog is Sample without the count.
func (s *ErrorSampler) ShouldLog(key string) bool {
	ok, _ := s.Sample(key)
	return ok
}

// Count returns the occurrences recorded for key.
func (s *ErrorSampler) Count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key]
}

// Reset forgets key.
func (s *ErrorSampler) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counts, key)
}
