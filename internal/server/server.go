// Package server exposes the test repository and the runner over HTTP.
//
// The API is JSON end to end. Upload and delete answer with a
// {success, message} envelope; run and retry answer with the run report
// itself, a single object for one browser target and an array for several.
package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sgrims/pagetest/internal/action"
	"github.com/sgrims/pagetest/internal/browser"
	"github.com/sgrims/pagetest/internal/config"
	"github.com/sgrims/pagetest/internal/runner"
	"github.com/sgrims/pagetest/internal/store"
)

// SessionBuilder opens a browser session for one target, honoring the
// per-request headless choice.
type SessionBuilder func(target string, headless bool) (browser.Session, error)

// API request models.
type RunTestRequest struct {
	TestName string `json:"test_name"`
	Browser  string `json:"browser"`
	Headless *bool  `json:"headless"`
	Parallel bool   `json:"parallel"`
}

type RetryTestRequest struct {
	TestName string `json:"test_name"`
	Browser  string `json:"browser"`
}

type DeleteTestRequest struct {
	TestName string `json:"test_name"`
}

type Server struct {
	cfg      *config.Config
	store    *store.Store
	sessions SessionBuilder
	status   *runner.StatusTracker
	retry    *runner.RetryPlanner
	log      *zap.Logger
	engine   *gin.Engine
}

func New(cfg *config.Config, st *store.Store, sessions SessionBuilder, status *runner.StatusTracker, log *zap.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		sessions: sessions,
		status:   status,
		retry:    runner.NewRetryPlanner(st),
		log:      log,
	}

	r := gin.Default()
	r.Use(cors.Default())
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	r.POST("/upload", s.limitBody, s.uploadTest)
	r.GET("/list_tests", s.listTests)
	r.POST("/run_test", s.runTest)
	r.GET("/test_status/:name", s.testStatus)
	r.POST("/retry_test", s.retryTest)
	r.POST("/delete_test", s.deleteTest)
	r.GET("/download_report/:name", s.downloadReport)
	r.GET("/health", s.health)

	s.engine = r
	return s
}

// Handler returns the routing engine for embedding in tests or other servers.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info("starting server", zap.String("addr", addr))
	return s.engine.Run(addr)
}

// limitBody caps the upload request size before any of it is read.
func (s *Server) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	c.Next()
}

func (s *Server) uploadTest(c *gin.Context) {
	err := c.Request.ParseMultipartForm(s.cfg.MaxUploadBytes)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large. Maximum size is 16MB"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
		return
	}

	name := strings.TrimSpace(c.PostForm("test_name"))
	if name == "" {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Test name is required"})
		return
	}
	name = store.SanitizeName(name)
	if name == "" {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Invalid test name"})
		return
	}

	htmlFile, htmlErr := c.FormFile("html_file")
	jsonFile, jsonErr := c.FormFile("json_file")
	if htmlErr != nil || jsonErr != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Both HTML and JSON files are required"})
		return
	}

	html, err := readUpload(htmlFile)
	if err != nil {
		s.uploadFailed(c, err)
		return
	}
	script, err := readUpload(jsonFile)
	if err != nil {
		s.uploadFailed(c, err)
		return
	}

	if err := s.store.SaveTest(name, html, script); err != nil {
		if errors.Is(err, action.ErrInvalidScript) {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "Invalid JSON file format"})
			return
		}
		s.uploadFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Files uploaded successfully"})
}

func (s *Server) uploadFailed(c *gin.Context, err error) {
	s.log.Error("upload failed", zap.Error(err))
	c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
}

func (s *Server) listTests(c *gin.Context) {
	tests, err := s.store.ListTests()
	if err != nil {
		s.log.Error("failed to list tests", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"tests": []string{}, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tests": tests})
}

func (s *Server) runTest(c *gin.Context) {
	var req RunTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	name := store.SanitizeName(req.TestName)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Test name is required"})
		return
	}

	docURL, err := s.store.DocumentURL(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Test files not found"})
		return
	}
	actions, err := s.store.LoadActions(name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	targets, err := s.resolveTargets(req.Browser)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	headless := s.cfg.Headless
	if req.Headless != nil {
		headless = *req.Headless
	}

	s.log.Info("running test",
		zap.String("test", name),
		zap.Strings("browsers", targets),
		zap.Bool("headless", headless),
		zap.Bool("parallel", req.Parallel),
	)

	reports, err := s.newOrchestrator(headless).RunAll(name, docURL, targets, actions, req.Parallel)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if _, err := s.store.SaveReport(name, reports); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.respondReports(c, reports)
}

func (s *Server) testStatus(c *gin.Context) {
	name := c.Param("name")
	st, ok := s.status.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("No run found for %s", name)})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) retryTest(c *gin.Context) {
	var req RetryTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	name := store.SanitizeName(req.TestName)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Test name is required"})
		return
	}

	plan, err := s.retry.Plan(name)
	switch {
	case errors.Is(err, runner.ErrNothingToRetry):
		c.JSON(http.StatusOK, gin.H{"message": "No failed actions to retry"})
		return
	case errors.Is(err, runner.ErrNoHistory):
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	docURL, err := s.store.DocumentURL(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Test files not found"})
		return
	}

	// Default to the browser the failing run used.
	target := req.Browser
	if target == "" {
		if last, err := s.store.LastReport(name); err == nil && last.Summary.Browser != "" {
			target = last.Summary.Browser
		} else {
			target = "chrome"
		}
	}
	targets, err := s.resolveTargets(target)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	retryName := runner.RetryName(name)
	s.log.Info("retrying failed actions",
		zap.String("test", name),
		zap.Int("actions", len(plan)),
		zap.Strings("browsers", targets),
	)

	reports, err := s.newOrchestrator(s.cfg.Headless).RunAll(retryName, docURL, targets, plan, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if _, err := s.store.SaveReport(retryName, reports); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.respondReports(c, reports)
}

func (s *Server) deleteTest(c *gin.Context) {
	var req DeleteTestRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.TestName) == "" {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Test name is required"})
		return
	}

	name := store.SanitizeName(req.TestName)
	if err := s.store.DeleteTest(name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "Test not found"})
			return
		}
		s.log.Error("failed to delete test", zap.String("test", name), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Test deleted successfully"})
}

func (s *Server) downloadReport(c *gin.Context) {
	name := store.SanitizeName(c.Param("name"))
	path := s.store.ReportPath(name)
	if name == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// newOrchestrator builds the run pipeline for one request so the headless
// choice can differ per request.
func (s *Server) newOrchestrator(headless bool) *runner.Orchestrator {
	factory := func(target string) (browser.Session, error) {
		return s.sessions(target, headless)
	}
	exec := runner.NewExecutor(factory, s.status, runner.Options{
		ElementTimeout: s.cfg.ElementTimeout,
		StepDelay:      s.cfg.StepDelay,
		SettleDelay:    s.cfg.SettleDelay,
		ScreenshotDir:  s.cfg.ScreenshotDir,
		RecordingDir:   s.cfg.RecordingDir,
		Record:         s.cfg.Record,
	}, s.log)
	return runner.NewOrchestrator(exec, s.cfg.MaxParallel, s.log)
}

// resolveTargets expands a requested browser name into the target list for
// the run. "all" covers every configured target, or the full supported set
// when none are configured; empty means chrome.
func (s *Server) resolveTargets(name string) ([]string, error) {
	if name == "" {
		name = "chrome"
	}
	if name != "all" {
		if !browser.KnownTarget(name) {
			return nil, fmt.Errorf("unknown browser: %s", name)
		}
		return []string{name}, nil
	}

	configured := s.cfg.Targets
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

func (s *Server) respondReports(c *gin.Context, reports []runner.Report) {
	if len(reports) == 1 {
		c.JSON(http.StatusOK, reports[0])
		return
	}
	c.JSON(http.StatusOK, reports)
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
