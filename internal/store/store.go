// Package store persists uploaded tests and their run reports on disk.
//
// Each test lives in its own directory under the test root, holding the HTML
// document and the action script side by side. Reports go to a flat report
// root, one JSON file per test, overwritten on every run.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/sgrims/pagetest/internal/action"
	"github.com/sgrims/pagetest/internal/runner"
)

const (
	documentFile = "test.html"
	actionsFile  = "actions.json"
)

// ErrNotFound marks lookups for tests or reports that are not on disk.
var ErrNotFound = errors.New("not found")

// Store is the on-disk test and report repository. It implements
// runner.History for retry planning.
type Store struct {
	testDir   string
	reportDir string
	log       *zap.Logger
}

func New(testDir, reportDir string, log *zap.Logger) (*Store, error) {
	for _, dir := range []string{testDir, reportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Store{testDir: testDir, reportDir: reportDir, log: log}, nil
}

// SanitizeName strips everything but letters, digits, spaces, underscores and
// hyphens from a test name. The result is safe to use as a directory name; an
// empty result means the name was unusable.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// SaveTest writes a test's document and action script. The script is parsed
// before anything touches disk, so a bad upload never leaves a half-written
// test behind.
func (s *Store) SaveTest(name string, html, script []byte) error {
	if _, err := action.Parse(script); err != nil {
		return err
	}

	dir := filepath.Join(s.testDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create test dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, documentFile), html, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, actionsFile), script, 0o644); err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("write action script: %w", err)
	}

	s.log.Info("test saved", zap.String("test", name), zap.String("dir", dir))
	return nil
}

// ListTests returns the stored test names in lexical order.
func (s *Store) ListTests() ([]string, error) {
	entries, err := os.ReadDir(s.testDir)
	if err != nil {
		return nil, fmt.Errorf("read test dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func (s *Store) TestExists(name string) bool {
	if name == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(s.testDir, name))
	return err == nil && info.IsDir()
}

// DeleteTest removes a test and, if present, its report.
func (s *Store) DeleteTest(name string) error {
	if !s.TestExists(name) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err := os.RemoveAll(filepath.Join(s.testDir, name)); err != nil {
		return fmt.Errorf("delete test: %w", err)
	}
	if err := os.Remove(s.ReportPath(name)); err != nil && !os.IsNotExist(err) {
		s.log.Warn("failed to delete report", zap.String("test", name), zap.Error(err))
	}
	s.log.Info("test deleted", zap.String("test", name))
	return nil
}

// DocumentURL returns the file URL the browser should load for a test.
func (s *Store) DocumentURL(name string) (string, error) {
	path := filepath.Join(s.testDir, name, documentFile)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve document path: %w", err)
	}
	return "file://" + abs, nil
}

// LoadActions reads a test's stored action script.
func (s *Store) LoadActions(name string) ([]action.Action, error) {
	if !s.TestExists(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return action.Load(filepath.Join(s.testDir, name, actionsFile))
}

// ReportPath is where a test's report lands.
func (s *Store) ReportPath(test string) string {
	return filepath.Join(s.reportDir, test+"_report.json")
}

// SaveReport persists a run's reports and returns the file path. A
// single-target run is stored as one report object, a multi-target run as an
// array, so downloaded reports mirror what the run endpoint returned.
func (s *Store) SaveReport(test string, reports []runner.Report) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(reports) == 1 {
		data, err = json.MarshalIndent(reports[0], "", "  ")
	} else {
		data, err = json.MarshalIndent(reports, "", "  ")
	}
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	path := s.ReportPath(test)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	s.log.Info("report saved", zap.String("test", test), zap.String("path", path))
	return path, nil
}

// LoadReports reads a test's stored reports, normalizing the single-object
// form back to a one-element slice.
func (s *Store) LoadReports(test string) ([]runner.Report, error) {
	data, err := os.ReadFile(s.ReportPath(test))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: report for %s", ErrNotFound, test)
		}
		return nil, fmt.Errorf("read report: %w", err)
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var reports []runner.Report
		if err := json.Unmarshal(trimmed, &reports); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		return reports, nil
	}

	var report runner.Report
	if err := json.Unmarshal(trimmed, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return []runner.Report{report}, nil
}

// LastReport returns the most recent report for a test; for a multi-target
// run that is the final entry in the stored array.
func (s *Store) LastReport(test string) (runner.Report, error) {
	reports, err := s.LoadReports(test)
	if err != nil {
		return runner.Report{}, err
	}
	if len(reports) == 0 {
		return runner.Report{}, fmt.Errorf("%w: report for %s is empty", ErrNotFound, test)
	}
	return reports[len(reports)-1], nil
}
