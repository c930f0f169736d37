package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/brokerfacts/pkg/config"
	"github.com/yurifrl/brokerfacts/pkg/csv"
	"github.com/yurifrl/brokerfacts/pkg/dialect"
	"github.com/yurifrl/brokerfacts/pkg/executors"
	"github.com/yurifrl/brokerfacts/pkg/extractor"
	"github.com/yurifrl/brokerfacts/pkg/models"
	"github.com/yurifrl/brokerfacts/pkg/plan"
	"github.com/yurifrl/brokerfacts/pkg/source"
	"github.com/yurifrl/brokerfacts/pkg/ynab"
)

const maxUpload = 32 << 20

// Server exposes statement extraction over HTTP.
type Server struct {
	config   *config.Config
	logger   *log.Logger
	mux      *http.ServeMux
	dialects *dialect.Registry
	opener   source.Opener
	results  sync.Map
	// newLedger builds the YNAB client for a token; replaced in tests.
	newLedger func(token string) executors.Ledger
}

// New creates a new HTTP server
func New(config *config.Config, logger *log.Logger) (*Server, error) {
	reg, err := config.Registry()
	if err != nil {
		return nil, err
	}
	s := &Server{
		config:   config,
		logger:   logger,
		mux:      http.NewServeMux(),
		dialects: reg,
		opener:   source.NewFiles(logger, config.XLSCharset),
		newLedger: func(token string) executors.Ledger {
			return ynab.New(token)
		},
	}
	s.setupRoutes()
	return s, nil
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/extract", s.withLogging(s.handleExtract))
	s.mux.HandleFunc("/api/sync", s.withLogging(s.handleSync))
	s.mux.HandleFunc("/api/dialects", s.withLogging(s.handleDialects))
	s.mux.HandleFunc("/api/files/", s.withLogging(s.handleFiles))
	s.mux.HandleFunc("/api/budgets", s.withLogging(s.handleBudgets))
	s.mux.HandleFunc("/api/budgets/", s.withLogging(s.handleBudgetAccounts))
}

// Dialect is the JSON form of a dialect listing.
type Dialect struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Anchors     []string `json:"anchors"`
	KeyRule     string   `json:"key_rule"`
}

func (s *Server) handleDialects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	var out []Dialect
	for _, p := range s.dialects.Profiles() {
		out = append(out, Dialect{Name: p.Name, Description: p.Description, Anchors: p.Anchors(), KeyRule: p.Scope.Rule()})
	}
	if err := s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"dialects": out,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// saveUpload copies the multipart statement into a temporary file, since PDF
// and spreadsheet readers need random access. The caller removes the file.
func (s *Server) saveUpload(r *http.Request) (path, name string, err error) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return "", "", fmt.Errorf("failed to parse form: %w", err)
	}
	file, header, err := r.FormFile("statement")
	if err != nil {
		return "", "", fmt.Errorf("statement file required: %w", err)
	}
	defer file.Close()

	name = filepath.Base(header.Filename)
	if !source.Supported(name) {
		return "", "", fmt.Errorf("%w: %s", source.ErrUnknownType, name)
	}
	tmp, err := os.CreateTemp("", "statement-*"+filepath.Ext(name))
	if err != nil {
		return "", "", err
	}
	defer tmp.Close()
	if _, err := io.Copy(tmp, file); err != nil {
		os.Remove(tmp.Name())
		return "", "", err
	}
	return tmp.Name(), name, nil
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	path, name, err := s.saveUpload(r)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "failed to read file", err)
		return
	}
	defer os.Remove(path)

	profiles, err := s.dialects.Select(r.Form["dialect"])
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "unknown dialect", err)
		return
	}

	result, err := extractor.New(s.logger, s.opener, profiles...).Extract(r.Context(), path)
	if err != nil {
		s.respondError(w, r, http.StatusUnprocessableEntity, "failed to extract statement", err)
		return
	}
	result.Document = name

	filename := strings.TrimSuffix(name, filepath.Ext(name)) + "-facts.csv"
	s.results.Store(filename, result)
	if err := s.writeCache(filename, result); err != nil {
		s.logger.Warn("failed to write csv cache", "file", filename, "err", err)
	}

	if err := s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"file":     filename,
		"document": result.Document,
		"dialect":  result.Dialect,
		"accounts": result.Records(),
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// handleSync extracts the statement and reconciles it against YNAB using the
// configured account mapping. apply=true creates the adjustments.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	path, name, err := s.saveUpload(r)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "failed to read file", err)
		return
	}
	defer os.Remove(path)

	token := r.FormValue("token")
	if token == "" {
		token = s.config.YNAB.Token
	}
	budgetID := r.FormValue("budget_id")
	if budgetID == "" {
		budgetID = s.config.YNAB.BudgetID
	}
	if token == "" || budgetID == "" {
		s.respondError(w, r, http.StatusBadRequest, "token and budget_id required", nil)
		return
	}

	p := &plan.Plan{
		YNAB:       plan.YNABConfig{BudgetID: budgetID},
		Statements: []plan.Statement{{File: path, Dialects: r.Form["dialect"]}},
	}
	exec := executors.New(s.logger, s.config, s.dialects, s.opener, s.newLedger(token))
	batch, report, err := exec.Plan(r.Context(), p)
	if err != nil {
		s.respondError(w, r, http.StatusBadGateway, "sync failed", err)
		return
	}
	if o := batch.Outcomes[0]; o.Err != nil {
		s.respondError(w, r, http.StatusUnprocessableEntity, "failed to extract statement", o.Err)
		return
	}

	created := 0
	if r.FormValue("apply") == "true" {
		if created, err = exec.Apply(p, report); err != nil {
			s.respondError(w, r, http.StatusBadGateway, "apply failed", err)
			return
		}
	}

	type line struct {
		Dialect    string            `json:"dialect,omitempty"`
		Account    models.AccountKey `json:"account"`
		AccountID  string            `json:"account_id,omitempty"`
		Status     string            `json:"status"`
		Statement  string            `json:"statement"`
		Balance    string            `json:"balance"`
		Difference string            `json:"difference"`
	}
	lines := make([]line, 0, len(report.Items))
	for _, e := range report.Items {
		lines = append(lines, line{
			Dialect:    e.Dialect,
			Account:    e.Account,
			AccountID:  e.AccountID,
			Status:     e.Status.String(),
			Statement:  e.Statement.StringFixed(2),
			Balance:    e.Balance.StringFixed(2),
			Difference: e.Difference().StringFixed(2),
		})
	}
	s.logger.Info("reconciliation complete", "file", name, "to_adjust", report.AdjustCount(), "in_sync", report.InSyncCount(), "created", created)

	if err := s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "success",
		"lines":     lines,
		"to_adjust": report.AdjustCount(),
		"in_sync":   report.InSyncCount(),
		"created":   created,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// handleFiles serves the CSV for a previously extracted statement.
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimPrefix(r.URL.Path, "/api/files/")
	if filename == "" {
		s.respondError(w, r, http.StatusBadRequest, "filename required", nil)
		return
	}

	if filepath.Base(filename) != filename {
		s.respondError(w, r, http.StatusBadRequest, "invalid filename", nil)
		return
	}

	var data []byte
	if value, ok := s.results.Load(filename); ok {
		result, ok := value.(models.Result)
		if !ok {
			s.respondError(w, r, http.StatusInternalServerError, "internal type assertion error", nil)
			return
		}
		data = csv.Results(nil, result)
	} else {
		cached, err := s.readCache(filename)
		if err != nil {
			s.respondError(w, r, http.StatusNotFound, "file not found", nil)
			return
		}
		data = cached
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("failed to write csv response", "err", err)
	}
}

// writeCache stores the CSV of result under the configured cache directory so
// downloads survive a restart. No directory configured disables it.
func (s *Server) writeCache(filename string, result models.Result) error {
	if s.config.CacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.config.CacheDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.config.CacheDir, filename), csv.Results(nil, result), 0o644)
}

func (s *Server) readCache(filename string) ([]byte, error) {
	if s.config.CacheDir == "" {
		return nil, os.ErrNotExist
	}
	return os.ReadFile(filepath.Join(s.config.CacheDir, filename))
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		s.respondError(w, r, http.StatusBadRequest, "token required", nil)
		return
	}

	budgets, err := ynab.New(token).Budget().GetBudgets()
	if err != nil {
		s.respondError(w, r, http.StatusBadGateway, "failed to fetch budgets", err)
		return
	}
	s.logger.Info("budgets response", "budgets_count", len(budgets))

	if err := s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"budgets": budgets,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// handleBudgetAccounts lists the accounts a statement key can be mapped to.
func (s *Server) handleBudgetAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	budgetID := strings.TrimPrefix(r.URL.Path, "/api/budgets/")
	if budgetID == "" {
		s.respondError(w, r, http.StatusBadRequest, "budget_id required", nil)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		s.respondError(w, r, http.StatusBadRequest, "token required", nil)
		return
	}

	accounts, err := ynab.New(token).Account().List(budgetID)
	if err != nil {
		s.respondError(w, r, http.StatusBadGateway, "failed to fetch accounts", err)
		return
	}
	s.logger.Info("accounts response", "budget_id", budgetID, "accounts_count", len(accounts))

	if err := s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"accounts": accounts,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// --- helpers ---

// writeJSON encodes v as JSON with the given status and writes headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", r.Method, "path", r.URL.Path)
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", r.Method, "path", r.URL.Path)
	}
	body := map[string]string{
		"status": "error",
		"error":  message,
	}
	if err != nil {
		body["detail"] = err.Error()
	}
	_ = s.writeJSON(w, status, body)
}

// withLogging wraps a handler to log request start/end and recover panics.
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
				s.respondError(w, r, http.StatusInternalServerError, "internal server error", fmt.Errorf("panic: %v", rec))
			}
		}()
		next(w, r)
	}
}
