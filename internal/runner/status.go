package runner

import (
	"sync"
	"time"
)

// Run phases.
const (
	PhaseRunning   = "running"
	PhaseCompleted = "completed"
	PhaseFailed    = "failed"
)

// Status is the pollable progress of one run, keyed by test name.
type Status struct {
	Test     string `json:"test"`
	Browser  string `json:"browser"`
	Phase    string `json:"status"`
	Progress int    `json:"progress"`
	Total    int    `json:"total"`
	Started  string `json:"started"`
}

// StatusTracker holds live run progress for polling. One entry per test name,
// guarded by a single lock; a new run of the same test overwrites the old
// entry rather than evicting it. When several targets run one test at once,
// the entry follows the most recently started target.
type StatusTracker struct {
	mu   sync.Mutex
	runs map[string]*Status
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{runs: make(map[string]*Status)}
}

// Start registers a running entry for the test, replacing any previous one.
func (t *StatusTracker) Start(test, browserName string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs[test] = &Status{
		Test:    test,
		Browser: browserName,
		Phase:   PhaseRunning,
		Total:   total,
		Started: time.Now().Format(time.RFC3339),
	}
}

// Step records one more completed action. Steps from a target whose entry has
// been replaced by a newer Start are dropped, so Progress never exceeds Total.
func (t *StatusTracker) Step(test, browserName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.runs[test]; ok && s.Browser == browserName {
		s.Progress++
	}
}

// Finish transitions the entry out of the running phase. Only the target that
// owns the entry may finish it.
func (t *StatusTracker) Finish(test, browserName string, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.runs[test]
	if !ok || s.Browser != browserName {
		return
	}
	if failed {
		s.Phase = PhaseFailed
	} else {
		s.Phase = PhaseCompleted
	}
}

// Get returns a copy of the entry for the test.
func (t *StatusTracker) Get(test string) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.runs[test]
	if !ok {
		return Status{}, false
	}
	return *s, true
}
