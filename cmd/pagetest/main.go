package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sgrims/pagetest/internal/action"
	"github.com/sgrims/pagetest/internal/browser"
	"github.com/sgrims/pagetest/internal/config"
	"github.com/sgrims/pagetest/internal/runner"
	"github.com/sgrims/pagetest/internal/server"
	"github.com/sgrims/pagetest/internal/store"
)

var (
	servePort    int
	runBrowser   string
	runHeadless  bool
	runParallel  bool
	runRecord    bool
	retryBrowser string
	verbose      bool
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "pagetest",
		Short: "Run declarative UI test scripts against local HTML pages",
		Long: `pagetest drives uploaded HTML documents through real browsers, executes
JSON action scripts against them, and produces pass/fail reports with
per-action timing and failure screenshots.

Tests live on disk: each one is an HTML document plus an actions.json
script, uploaded over the HTTP API or dropped into the test directory.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (default from PAGETEST_PORT or 8000)")

	runCmd := &cobra.Command{
		Use:   "run <test>",
		Short: "Execute an uploaded test and print its report",
		Args:  cobra.ExactArgs(1),
		RunE:  runTest,
	}
	runCmd.Flags().StringVarP(&runBrowser, "browser", "b", "chrome", `Browser target, or "all"`)
	runCmd.Flags().BoolVar(&runHeadless, "headless", true, "Run without a visible browser window")
	runCmd.Flags().BoolVar(&runParallel, "parallel", false, "Run multi-browser targets concurrently")
	runCmd.Flags().BoolVar(&runRecord, "record", false, "Record each session to an animated GIF")

	retryCmd := &cobra.Command{
		Use:   "retry <test>",
		Short: "Re-run the actions that failed in the test's last report",
		Args:  cobra.ExactArgs(1),
		RunE:  retryTest,
	}
	retryCmd.Flags().StringVarP(&retryBrowser, "browser", "b", "", "Browser target (default: the failing run's)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List uploaded tests",
		RunE:  listTests,
	}

	rootCmd.AddCommand(serveCmd, runCmd, retryCmd, listCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	if servePort != 0 {
		cfg.Port = servePort
	}

	log, err := serverLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	db, err := store.New(cfg.TestDir, cfg.ReportDir, log)
	if err != nil {
		return err
	}

	if !cfg.Debug && !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.New(cfg, db, sessionBuilder(cfg), runner.NewStatusTracker(), log)
	fmt.Printf("pagetest listening on :%d\n", cfg.Port)
	return srv.Run()
}

func runTest(cmd *cobra.Command, args []string) error {
	test := args[0]

	cfg := config.LoadConfig()
	if cmd.Flags().Changed("headless") {
		cfg.Headless = runHeadless
	}
	if cmd.Flags().Changed("record") {
		cfg.Record = runRecord
	}

	log := cliLogger()
	defer log.Sync()

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	db, err := store.New(cfg.TestDir, cfg.ReportDir, log)
	if err != nil {
		return err
	}

	docURL, err := db.DocumentURL(test)
	if err != nil {
		return fmt.Errorf("test %q is not uploaded (try \"pagetest list\")", test)
	}
	actions, err := db.LoadActions(test)
	if err != nil {
		return err
	}
	for i, act := range actions {
		if !action.Known(act.Type) {
			fmt.Printf("  warning: action %d has unknown type %q and will fail\n", i+1, act.Type)
		}
	}

	targets, err := expandTargets(cfg, runBrowser)
	if err != nil {
		return err
	}

	fmt.Printf("→ Running %s on %s (%d actions)...\n", test, strings.Join(targets, ", "), len(actions))
	reports, err := newOrchestrator(cfg, log).RunAll(test, docURL, targets, actions, runParallel)
	if err != nil {
		return err
	}

	path, err := db.SaveReport(test, reports)
	if err != nil {
		return err
	}

	printReports(reports)
	fmt.Printf("✓ Report saved to %s\n", path)
	return nil
}

func retryTest(cmd *cobra.Command, args []string) error {
	test := args[0]

	cfg := config.LoadConfig()
	log := cliLogger()
	defer log.Sync()

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	db, err := store.New(cfg.TestDir, cfg.ReportDir, log)
	if err != nil {
		return err
	}

	plan, err := runner.NewRetryPlanner(db).Plan(test)
	if errors.Is(err, runner.ErrNothingToRetry) {
		fmt.Println("No failed actions to retry")
		return nil
	}
	if err != nil {
		return err
	}

	docURL, err := db.DocumentURL(test)
	if err != nil {
		return fmt.Errorf("test %q is not uploaded", test)
	}

	target := retryBrowser
	if target == "" {
		if last, err := db.LastReport(test); err == nil && last.Summary.Browser != "" {
			target = last.Summary.Browser
		} else {
			target = "chrome"
		}
	}
	if !browser.KnownTarget(target) {
		return fmt.Errorf("unknown browser: %s", target)
	}

	retryName := runner.RetryName(test)
	fmt.Printf("→ Retrying %d failed actions from %s on %s...\n", len(plan), test, target)
	reports, err := newOrchestrator(cfg, log).RunAll(retryName, docURL, []string{target}, plan, false)
	if err != nil {
		return err
	}

	path, err := db.SaveReport(retryName, reports)
	if err != nil {
		return err
	}

	printReports(reports)
	fmt.Printf("✓ Report saved to %s\n", path)
	return nil
}

func listTests(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	db, err := store.New(cfg.TestDir, cfg.ReportDir, zap.NewNop())
	if err != nil {
		return err
	}

	names, err := db.ListTests()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No tests uploaded")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

// sessionBuilder wires browser startup for the HTTP API, honoring per-request
// headless choices.
func sessionBuilder(cfg *config.Config) server.SessionBuilder {
	return func(target string, headless bool) (browser.Session, error) {
		return browser.NewSession(target, browser.Options{
			Headless: headless,
			Bin:      cfg.BinFor(target),
		})
	}
}

func newOrchestrator(cfg *config.Config, log *zap.Logger) *runner.Orchestrator {
	factory := func(target string) (browser.Session, error) {
		return browser.NewSession(target, browser.Options{
			Headless: cfg.Headless,
			Bin:      cfg.BinFor(target),
		})
	}
	exec := runner.NewExecutor(factory, runner.NewStatusTracker(), runner.Options{
		ElementTimeout: cfg.ElementTimeout,
		StepDelay:      cfg.StepDelay,
		SettleDelay:    cfg.SettleDelay,
		ScreenshotDir:  cfg.ScreenshotDir,
		RecordingDir:   cfg.RecordingDir,
		Record:         cfg.Record,
	}, log)
	return runner.NewOrchestrator(exec, cfg.MaxParallel, log)
}

func expandTargets(cfg *config.Config, name string) ([]string, error) {
	if name != "all" {
		if !browser.KnownTarget(name) {
			return nil, fmt.Errorf("unknown browser: %s", name)
		}
		return []string{name}, nil
	}
	configured := cfg.Targets
	if len(configured) == 0 {
		configured = browser.Targets()
	}
	targets := make([]string, 0, len(configured))
	for _, t := range configured {
		if browser.KnownTarget(t) {
			targets = append(targets, t)
		}
	}
	if len(targets) == 0 {
		return nil, errors.New("no browser targets configured")
	}
	return targets, nil
}

func printReports(reports []runner.Report) {
	for _, report := range reports {
		if report.Error != "" {
			fmt.Printf("✗ %s: %s\n", report.Summary.Browser, report.Error)
			continue
		}
		fmt.Printf("%s: %d/%d passed (%.2f%%) in %.3fs\n",
			report.Summary.Browser, report.Summary.Passed, report.Summary.Total,
			report.Summary.SuccessRate, report.Summary.Duration)
		for i, res := range report.Details {
			mark := "✓"
			if res.Status == runner.StatusFailed {
				mark = "✗"
			}
			fmt.Printf("  [%d] %s %s → %s\n", i+1, mark, res.Action, res.Message)
		}
	}
}

// serverLogger is the long-running process logger.
func serverLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Debug || verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// cliLogger keeps one-shot command output readable: progress goes to stdout,
// structured logs only with --verbose.
func cliLogger() *zap.Logger {
	if verbose {
		log, err := zap.NewDevelopment()
		if err == nil {
			return log
		}
	}
	return zap.NewNop()
}
