package runner

import (
	"errors"
	"fmt"

	"github.com/sgrims/pagetest/internal/action"
)

// Informational retry outcomes, distinguished from real failures so callers
// can report them instead of erroring.
var (
	ErrNoHistory      = errors.New("no report history")
	ErrNothingToRetry = errors.New("nothing to retry")
	ErrReportMismatch = errors.New("report does not match stored actions")
)

// History supplies persisted run artifacts to the planner.
type History interface {
	// LastReport returns the most recent report for the test; for
	// multi-target history this is the final entry.
	LastReport(test string) (Report, error)
	// LoadActions returns the test's full action sequence.
	LoadActions(test string) ([]action.Action, error)
}

// RetryPlanner derives the failed subset of a test's last run.
type RetryPlanner struct {
	history History
}

func NewRetryPlanner(history History) *RetryPlanner {
	return &RetryPlanner{history: history}
}

// RetryName is the derived test name a retry runs under, keeping the original
// report lineage intact.
func RetryName(test string) string {
	return test + "_retry"
}

// Plan returns the original definitions of the actions that failed in the
// test's last report, in their original relative order. Results are
// one-to-one with actions in input order, so each failed result maps back to
// its action by position; the recorded type and selector are cross-checked
// against the stored script.
func (p *RetryPlanner) Plan(test string) ([]action.Action, error) {
	report, err := p.history.LastReport(test)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoHistory, test)
	}

	actions, err := p.history.LoadActions(test)
	if err != nil {
		return nil, fmt.Errorf("load actions: %w", err)
	}

	var failed []action.Action
	for i, res := range report.Details {
		if res.Status != StatusFailed {
			continue
		}
		if i >= len(actions) {
			return nil, fmt.Errorf("%w: result %d has no source action", ErrReportMismatch, i)
		}
		act := actions[i]
		if act.Type != res.Action || act.Selector != res.Selector {
			return nil, fmt.Errorf("%w: result %d recorded %s[%s], script has %s[%s]",
				ErrReportMismatch, i, res.Action, res.Selector, act.Type, act.Selector)
		}
		failed = append(failed, act)
	}

	if len(failed) == 0 {
		return nil, ErrNothingToRetry
	}
	return failed, nil
}
