package runner

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sgrims/pagetest/internal/action"
	"github.com/sgrims/pagetest/internal/browser"
	"github.com/sgrims/pagetest/internal/recording"
)

// SessionFactory opens a live browser session for a target.
type SessionFactory func(target string) (browser.Session, error)

// Options tunes run execution.
type Options struct {
	ElementTimeout time.Duration
	StepDelay      time.Duration
	SettleDelay    time.Duration
	ScreenshotDir  string
	RecordingDir   string
	Record         bool
}

// Executor drives an ordered action sequence through one browser session and
// produces a report. The session is torn down on every exit path.
type Executor struct {
	sessions SessionFactory
	status   *StatusTracker
	opts     Options
	log      *zap.Logger
}

func NewExecutor(sessions SessionFactory, status *StatusTracker, opts Options, log *zap.Logger) *Executor {
	if opts.ElementTimeout <= 0 {
		opts.ElementTimeout = 10 * time.Second
	}
	return &Executor{sessions: sessions, status: status, opts: opts, log: log}
}

// Run executes the sequence against one target. The returned error covers
// session-level failures only (driver start, navigation); action failures are
// recorded in the report.
func (e *Executor) Run(test, target, docURL string, actions []action.Action) (Report, error) {
	runID := uuid.New().String()
	log := e.log.With(
		zap.String("test", test),
		zap.String("browser", target),
		zap.String("run_id", runID),
	)

	e.status.Start(test, target, len(actions))

	sess, err := e.sessions(target)
	if err != nil {
		e.status.Finish(test, target, true)
		return Report{}, fmt.Errorf("session setup failed: %w", err)
	}
	defer sess.Close()

	if e.opts.Record {
		rec := recording.Start(sess, recording.Options{}, log)
		defer func() {
			out := filepath.Join(e.opts.RecordingDir, fmt.Sprintf("%s_%s_%d.gif", test, target, time.Now().UnixNano()))
			if _, err := rec.Stop(out); err != nil {
				log.Warn("session recording failed", zap.Error(err))
			}
		}()
	}

	log.Info("loading document", zap.String("url", docURL))
	if err := sess.Navigate(docURL); err != nil {
		e.status.Finish(test, target, true)
		return Report{}, err
	}
	time.Sleep(e.opts.SettleDelay)

	in := NewInterpreter(sess, e.opts.ElementTimeout, e.opts.ScreenshotDir, log)
	results := make([]ActionResult, 0, len(actions))

	for i, act := range actions {
		log.Info("executing action",
			zap.Int("step", i+1),
			zap.Int("total", len(actions)),
			zap.String("type", act.Type),
		)

		start := time.Now()
		res := in.Execute(act)
		res.Duration = round3(time.Since(start).Seconds())
		results = append(results, res)
		e.status.Step(test, target)

		// Give the page's own event loop room between actions.
		time.Sleep(e.opts.StepDelay)
	}

	report := newReport(target, results, runID)
	e.status.Finish(test, target, false)
	log.Info("run finished",
		zap.Int("passed", report.Summary.Passed),
		zap.Int("failed", report.Summary.Failed),
	)
	return report, nil
}
