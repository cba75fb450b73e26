package runner

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sgrims/pagetest/internal/action"
)

// DefaultMaxParallel caps concurrent browser sessions in parallel runs. Each
// session is a full browser process, so the cap tracks host capacity, not
// target count.
const DefaultMaxParallel = 3

// Orchestrator fans one test run out across browser targets.
type Orchestrator struct {
	exec        *Executor
	maxParallel int
	log         *zap.Logger
}

func NewOrchestrator(exec *Executor, maxParallel int, log *zap.Logger) *Orchestrator {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	return &Orchestrator{exec: exec, maxParallel: maxParallel, log: log}
}

// RunAll executes the sequence against every target. With a single target the
// executor's error comes back as-is. With several targets each failure is
// folded into a zero-count error report so the remaining targets still run;
// in parallel mode the reports arrive in completion order, each one naming
// its own target.
func (o *Orchestrator) RunAll(test, docURL string, targets []string, actions []action.Action, parallel bool) ([]Report, error) {
	if len(targets) == 1 {
		report, err := o.exec.Run(test, targets[0], docURL, actions)
		if err != nil {
			return nil, err
		}
		return []Report{report}, nil
	}

	if parallel {
		return o.runParallel(test, docURL, targets, actions), nil
	}

	reports := make([]Report, 0, len(targets))
	for _, target := range targets {
		reports = append(reports, o.runOne(test, target, docURL, actions))
	}
	return reports, nil
}

func (o *Orchestrator) runOne(test, target, docURL string, actions []action.Action) Report {
	report, err := o.exec.Run(test, target, docURL, actions)
	if err != nil {
		o.log.Error("target run failed",
			zap.String("test", test),
			zap.String("browser", target),
			zap.Error(err),
		)
		return errorReport(target, err)
	}
	return report
}

func (o *Orchestrator) runParallel(test, docURL string, targets []string, actions []action.Action) []Report {
	limit := o.maxParallel
	if len(targets) < limit {
		limit = len(targets)
	}

	var (
		g       errgroup.Group
		mu      sync.Mutex
		reports = make([]Report, 0, len(targets))
	)
	g.SetLimit(limit)

	for _, target := range targets {
		g.Go(func() error {
			report := o.runOne(test, target, docURL, actions)
			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
			return nil // failures live inside the report
		})
	}
	g.Wait()

	return reports
}
