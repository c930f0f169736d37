package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/charmbracelet/log"

	"github.com/yurifrl/brokerfacts/pkg/config"
	"github.com/yurifrl/brokerfacts/pkg/executors"
)

const statement = `--- page 0
0 Statement
1 Period:
2 August
3 1
4 -
5 August
6 31,
7 2024
--- page 1
0 Acct
1 #
2 1234
3 TOTAL
4 ACCOUNT
5 VALUE
6 $100.00
7 $150.00
`

type fakeLedger struct {
	created []transaction.PayloadTransaction
}

func (f *fakeLedger) Balances(_ string, ids []string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, id := range ids {
		out[id] = 100000
	}
	return out, nil
}

func (f *fakeLedger) CreateTransactions(_ string, p []transaction.PayloadTransaction) error {
	f.created = append(f.created, p...)
	return nil
}

func newServer(t *testing.T) (*Server, *fakeLedger) {
	t.Helper()
	cfg := &config.Config{YNAB: config.YNAB{Accounts: map[string]string{"1234": "acc-1"}, Threshold: 0.01}}
	srv, err := New(cfg, log.New(io.Discard))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ledger := &fakeLedger{}
	srv.newLedger = func(string) executors.Ledger { return ledger }
	return srv, ledger
}

func upload(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("statement", filename)
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(fw, content)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestExtractAndDownload(t *testing.T) {
	srv, _ := newServer(t)

	body, contentType := upload(t, "august.tokens", statement, map[string]string{"dialect": "chase"})
	req := httptest.NewRequest(http.MethodPost, "/api/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	if out["dialect"] != "chase" || out["file"] != "august-facts.csv" {
		t.Errorf("unexpected response %v", out)
	}
	accounts := out["accounts"].([]interface{})
	first := accounts[0].(map[string]interface{})
	if first["account"] != "1234" || first["current_period_value"] != 150.0 || first["statement_date"] != "2024-08-31" {
		t.Errorf("unexpected account %v", first)
	}
	if first["long_term_gain"] != nil {
		t.Errorf("unset slot should be null, got %v", first["long_term_gain"])
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files/august-facts.csv", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "august.tokens,chase,1234,2024-08-31,100.00,150.00") {
		t.Errorf("unexpected csv (%d):\n%s", rec.Code, rec.Body.String())
	}
}

func TestExtractRejectsUnknownFileType(t *testing.T) {
	srv, _ := newServer(t)

	body, contentType := upload(t, "august.docx", "hello", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestDialects(t *testing.T) {
	srv, _ := newServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dialects", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := len(decode(t, rec)["dialects"].([]interface{})); got != 3 {
		t.Errorf("expected 3 dialects, got %d", got)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/dialects", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestSyncApply(t *testing.T) {
	srv, ledger := newServer(t)

	body, contentType := upload(t, "august.tokens", statement, map[string]string{
		"token":     "t",
		"budget_id": "b-1",
		"apply":     "true",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/sync", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	if out["to_adjust"] != 1.0 || out["created"] != 1.0 {
		t.Errorf("unexpected response %v", out)
	}
	if len(ledger.created) != 1 || ledger.created[0].Amount != 50000 {
		t.Errorf("unexpected transactions %+v", ledger.created)
	}
}

func TestFilesNotFound(t *testing.T) {
	srv, _ := newServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files/nope.csv", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestExtractWritesCacheDir(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{CacheDir: dir}
	srv, err := New(cfg, log.New(io.Discard))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	body, contentType := upload(t, "august.tokens", statement, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	data, err := os.ReadFile(filepath.Join(dir, "august-facts.csv"))
	if err != nil {
		t.Fatalf("expected cached csv: %v", err)
	}
	if !strings.Contains(string(data), "august.tokens,chase,1234,2024-08-31,100.00,150.00") {
		t.Errorf("unexpected cached csv:\n%s", data)
	}

	// a fresh server has nothing in memory and serves the file from disk
	restarted, err := New(cfg, log.New(io.Discard))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	rec = httptest.NewRecorder()
	restarted.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files/august-facts.csv", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != string(data) {
		t.Errorf("unexpected download (%d):\n%s", rec.Code, rec.Body.String())
	}
}

func TestFilesRejectsPaths(t *testing.T) {
	srv, _ := newServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files/nested/august-facts.csv", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
