package runner

import (
	"math"
	"time"
)

// Result statuses.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
)

// ActionResult records the outcome of one executed action. Results are
// appended in execution order and never mutated afterwards.
type ActionResult struct {
	Action     string  `json:"action"`
	Selector   string  `json:"selector"`
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	Timestamp  string  `json:"timestamp"`
	Screenshot string  `json:"screenshot,omitempty"`
	Duration   float64 `json:"duration"` // seconds
}

// Summary aggregates one run's outcome for a single browser target.
type Summary struct {
	Browser     string  `json:"browser"`
	Total       int     `json:"total"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
	Duration    float64 `json:"duration"` // sum of action durations, seconds
}

// Report is the persisted artifact of one run against one target. An
// all-targets run produces an ordered list of these.
type Report struct {
	Summary   Summary        `json:"summary"`
	Details   []ActionResult `json:"details"`
	Timestamp string         `json:"timestamp"`
	Error     string         `json:"error,omitempty"`
	RunID     string         `json:"run_id,omitempty"`
}

const reportTimeFormat = "2006-01-02 15:04:05"

func buildSummary(browserName string, results []ActionResult) Summary {
	passed := 0
	var elapsed float64
	for _, r := range results {
		if r.Status == StatusPassed {
			passed++
		}
		elapsed += r.Duration
	}
	s := Summary{
		Browser:  browserName,
		Total:    len(results),
		Passed:   passed,
		Failed:   len(results) - passed,
		Duration: round3(elapsed),
	}
	if s.Total > 0 {
		s.SuccessRate = round2(float64(s.Passed) / float64(s.Total) * 100)
	}
	return s
}

func newReport(browserName string, results []ActionResult, runID string) Report {
	return Report{
		Summary:   buildSummary(browserName, results),
		Details:   results,
		Timestamp: time.Now().Format(reportTimeFormat),
		RunID:     runID,
	}
}

// errorReport is the zero-count report for a target whose run could not
// produce results.
func errorReport(browserName string, err error) Report {
	return Report{
		Summary:   Summary{Browser: browserName},
		Details:   []ActionResult{},
		Timestamp: time.Now().Format(reportTimeFormat),
		Error:     err.Error(),
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
