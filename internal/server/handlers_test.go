package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/adithya/forensiq/internal/cache"
	"github.com/adithya/forensiq/internal/detect"
	"github.com/adithya/forensiq/internal/domain"
)

const cycleCSV = `transaction_id,sender_id,receiver_id,amount,timestamp
TXN_00001,ACC_A,ACC_B,10000,2025-01-15 08:00:00
TXN_00002,ACC_B,ACC_C,9900,2025-01-15 10:00:00
TXN_00003,ACC_C,ACC_A,9800,2025-01-15 12:00:00
`

type fakeExporter struct {
	sessions []string
	err      error
}

func (f *fakeExporter) ExportResult(_ context.Context, sessionID string, _ *domain.AnalysisResult) error {
	f.sessions = append(f.sessions, sessionID)
	return f.err
}

func testRouter(t *testing.T, store cache.Store, opts ...HandlerOption) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	analyzer := detect.NewAnalyzer(logger, detect.WithClock(func() time.Time {
		return time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	}))
	opts = append([]HandlerOption{WithSessionIDFunc(func() string { return "fixed-session" })}, opts...)
	api := NewAPIHandlers(logger, analyzer, store, 1<<20, opts...)
	return NewRouter(logger, RouterDependencies{API: api})
}

func multipartCSV(t *testing.T, csv string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "transactions.csv")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := fw.Write([]byte(csv)); err != nil {
		t.Fatalf("writing multipart body: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestAnalyzeEndpoint(t *testing.T) {
	store := cache.NewMemoryStore()
	router := testRouter(t, store)

	body, contentType := multipartCSV(t, cycleCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		SessionID string                 `json:"sessionId"`
		Results   *domain.AnalysisResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.SessionID != "fixed-session" {
		t.Errorf("sessionId = %q, want fixed-session", resp.SessionID)
	}
	if resp.Results == nil || len(resp.Results.FraudRings) != 1 {
		t.Fatalf("expected one fraud ring, got %+v", resp.Results)
	}
	if resp.Results.FraudRings[0].PatternType != domain.PatternCycle {
		t.Errorf("pattern = %s, want cycle", resp.Results.FraudRings[0].PatternType)
	}
	if resp.Results.Summary.TotalAccountsAnalyzed != 3 {
		t.Errorf("accounts analyzed = %d, want 3", resp.Results.Summary.TotalAccountsAnalyzed)
	}

	// Same snapshot must be retrievable by session id.
	if _, err := store.Get("fixed-session"); err != nil {
		t.Errorf("session missing from store: %v", err)
	}
}

func TestAnalyzeEndpointEmptyResultsSerializeAsArrays(t *testing.T) {
	const quietCSV = `transaction_id,sender_id,receiver_id,amount,timestamp
T1,A,B,100,2025-01-15 08:00:00
`
	router := testRouter(t, cache.NewMemoryStore())

	body, contentType := multipartCSV(t, quietCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	raw := rec.Body.String()
	if !strings.Contains(raw, `"suspicious_accounts":[]`) || !strings.Contains(raw, `"fraud_rings":[]`) {
		t.Errorf("empty collections must serialize as []: %s", raw)
	}
}

func TestAnalyzeEndpointMissingFile(t *testing.T) {
	router := testRouter(t, cache.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeEndpointRejectsGet(t *testing.T) {
	router := testRouter(t, cache.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/api/analyze", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("Allow = %q, want POST", allow)
	}
}

func TestAnalyzeEndpointAllRowsFiltered(t *testing.T) {
	const badCSV = `transaction_id,sender_id,receiver_id,amount,timestamp
T1,A,A,100,2025-01-15 08:00:00
`
	router := testRouter(t, cache.NewMemoryStore())

	body, contentType := multipartCSV(t, badCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		SessionID   string                 `json:"sessionId"`
		Results     *domain.AnalysisResult `json:"results"`
		SkippedRows []struct {
			Line   int    `json:"line"`
			Reason string `json:"reason"`
		} `json:"skipped_rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Results == nil || len(resp.Results.SuspiciousAccounts) != 0 || len(resp.Results.FraudRings) != 0 {
		t.Errorf("expected empty snapshot, got %+v", resp.Results)
	}
	if resp.Results != nil && resp.Results.Summary.TotalAccountsAnalyzed != 0 {
		t.Errorf("accounts analyzed = %d, want 0", resp.Results.Summary.TotalAccountsAnalyzed)
	}
	if len(resp.SkippedRows) != 1 || resp.SkippedRows[0].Reason != "self-transfer" {
		t.Errorf("skipped rows = %+v", resp.SkippedRows)
	}
}

func TestAnalyzeEndpointExportIsBestEffort(t *testing.T) {
	exporter := &fakeExporter{err: errors.New("graph down")}
	router := testRouter(t, cache.NewMemoryStore(), WithExporter(exporter))

	body, contentType := multipartCSV(t, cycleCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 despite export failure", rec.Code)
	}
	if len(exporter.sessions) != 1 || exporter.sessions[0] != "fixed-session" {
		t.Errorf("exporter calls = %v", exporter.sessions)
	}
}

func TestResultsEndpoint(t *testing.T) {
	store := cache.NewMemoryStore()
	if err := store.Put("sess-1", &domain.AnalysisResult{
		SuspiciousAccounts: []domain.SuspiciousAccount{},
		FraudRings:         []domain.FraudRing{},
		Summary:            domain.Summary{TotalAccountsAnalyzed: 7},
	}); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	router := testRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/results/sess-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		SessionID string                 `json:"sessionId"`
		Results   *domain.AnalysisResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.SessionID != "sess-1" || resp.Results.Summary.TotalAccountsAnalyzed != 7 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestResultsEndpointUnknownSession(t *testing.T) {
	router := testRouter(t, cache.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/api/results/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(t, cache.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected health payload: %s", rec.Body.String())
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(logger, RouterDependencies{
		AllowedOrigins: []string{"https://ui.example.com"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/healthz", nil)
	req.Header.Set("Origin", "https://ui.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://ui.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestCORSRejectsUnknownPreflight(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(logger, RouterDependencies{
		AllowedOrigins: []string{"https://ui.example.com"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("preflight status = %d, want 403", rec.Code)
	}
}
