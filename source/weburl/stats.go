package weburl

import (
	"sort"
	"sync"
)

// maxTrackedEntries bounds the blocked-domain set and suspicious-pattern log so
// attacker-supplied input cannot grow them without limit.
const maxTrackedEntries = 1000

// Stats is a snapshot of validator counters.
type Stats struct {
	Attempts           int      `json:"attempts"`
	Failures           int      `json:"failures"`
	BlockedDomains     []string `json:"blocked_domains"`
	SuspiciousPatterns []string `json:"suspicious_patterns"`
}

type statsRecorder struct {
	mu         sync.Mutex
	attempts   int
	failures   int
	blocked    map[string]struct{}
	suspicious []string
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{blocked: make(map[string]struct{})}
}

func (s *statsRecorder) recordAttempt() {
	s.mu.Lock()
	s.attempts++
	s.mu.Unlock()
}

func (s *statsRecorder) recordFailure(verr *ValidationError, pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures++
	if verr.Reason == ReasonBlockedDomain && verr.Host != "" && len(s.blocked) < maxTrackedEntries {
		s.blocked[verr.Host] = struct{}{}
	}
	if pattern != "" && len(s.suspicious) < maxTrackedEntries {
		s.suspicious = append(s.suspicious, pattern)
	}
}

func (s *statsRecorder) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	blocked := make([]string, 0, len(s.blocked))
	for host := range s.blocked {
		blocked = append(blocked, host)
	}
	sort.Strings(blocked)

	return Stats{
		Attempts:           s.attempts,
		Failures:           s.failures,
		BlockedDomains:     blocked,
		SuspiciousPatterns: append([]string(nil), s.suspicious...),
	}
}

func (s *statsRecorder) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = 0
	s.failures = 0
	s.blocked = make(map[string]struct{})
	s.suspicious = nil
}
