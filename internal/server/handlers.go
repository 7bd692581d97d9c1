package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adithya/forensiq/internal/cache"
	"github.com/adithya/forensiq/internal/detect"
	"github.com/adithya/forensiq/internal/domain"
	"github.com/adithya/forensiq/internal/ingest"
)

// ResultExporter pushes a finished result to an external store. The analyze
// flow treats export failures as non-fatal.
type ResultExporter interface {
	ExportResult(ctx context.Context, sessionID string, result *domain.AnalysisResult) error
}

// APIHandlers exposes HTTP handlers for the analysis API.
type APIHandlers struct {
	logger   *slog.Logger
	analyzer *detect.Analyzer
	store    cache.Store
	exporter ResultExporter
	metrics  *Metrics

	maxUploadBytes int64
	newSessionID   func() string
}

// HandlerOption customizes APIHandlers.
type HandlerOption func(*APIHandlers)

// WithExporter enables graph export of finished results.
func WithExporter(exporter ResultExporter) HandlerOption {
	return func(h *APIHandlers) { h.exporter = exporter }
}

// WithMetrics wires request instrumentation.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *APIHandlers) { h.metrics = m }
}

// WithSessionIDFunc overrides session id generation.
func WithSessionIDFunc(fn func() string) HandlerOption {
	return func(h *APIHandlers) { h.newSessionID = fn }
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, analyzer *detect.Analyzer, store cache.Store, maxUploadBytes int64, opts ...HandlerOption) *APIHandlers {
	h := &APIHandlers{
		logger:         logger,
		analyzer:       analyzer,
		store:          store,
		maxUploadBytes: maxUploadBytes,
		newSessionID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type analyzeResponse struct {
	SessionID         string                 `json:"sessionId"`
	Results           *domain.AnalysisResult `json:"results"`
	SkippedRows       []ingest.SkippedRow    `json:"skipped_rows,omitempty"`
	CycleLimitReached bool                   `json:"cycle_limit_reached,omitempty"`
}

type resultResponse struct {
	SessionID string                 `json:"sessionId"`
	Results   *domain.AnalysisResult `json:"results"`
}

// handleAnalyze accepts a multipart CSV upload under the "file" field, runs
// the full pipeline synchronously and returns the complete result.
func (h *APIHandlers) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, _, err := r.FormFile("file")
	if err != nil {
		h.metrics.observeAnalysis("bad_request", 0, 0, 0)
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	parsed, err := ingest.ParseCSV(file)
	if err != nil {
		h.metrics.observeAnalysis("bad_request", 0, 0, 0)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.analyzer.Analyze(parsed.Transactions)
	if err != nil {
		h.logger.Error("analysis failed", "error", err)
		h.metrics.observeAnalysis("error", 0, len(parsed.Transactions), len(parsed.Skipped))
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	normalizeResult(result)

	sessionID := h.newSessionID()
	if err := h.store.Put(sessionID, result); err != nil {
		h.logger.Error("failed to persist session", "error", err, "sessionId", sessionID)
		h.metrics.observeAnalysis("error", 0, len(parsed.Transactions), len(parsed.Skipped))
		writeError(w, http.StatusInternalServerError, "failed to persist session")
		return
	}

	if h.exporter != nil {
		if err := h.exporter.ExportResult(r.Context(), sessionID, result); err != nil {
			// Graph export is best-effort; the cached result is canonical.
			h.logger.Error("graph export failed", "error", err, "sessionId", sessionID)
		}
	}

	h.logger.Info("analysis completed",
		"sessionId", sessionID,
		"accounts", result.Summary.TotalAccountsAnalyzed,
		"flagged", result.Summary.SuspiciousAccountsFlagged,
		"rings", result.Summary.FraudRingsDetected,
		"skipped_rows", len(parsed.Skipped),
	)
	h.metrics.observeAnalysis("ok", time.Since(start).Seconds(), len(parsed.Transactions), len(parsed.Skipped))

	respondJSON(w, http.StatusOK, analyzeResponse{
		SessionID:         sessionID,
		Results:           result,
		SkippedRows:       parsed.Skipped,
		CycleLimitReached: result.CycleCapHit,
	})
}

// handleResults serves a previously computed session.
func (h *APIHandlers) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/api/results/")
	sessionID = strings.Trim(sessionID, "/")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	result, err := h.store.Get(sessionID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("failed to load session", "error", err, "sessionId", sessionID)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	respondJSON(w, http.StatusOK, resultResponse{
		SessionID: sessionID,
		Results:   result,
	})
}

// normalizeResult replaces nil slices so empty results serialize as [].
func normalizeResult(result *domain.AnalysisResult) {
	if result.SuspiciousAccounts == nil {
		result.SuspiciousAccounts = []domain.SuspiciousAccount{}
	}
	if result.FraudRings == nil {
		result.FraudRings = []domain.FraudRing{}
	}
	for i := range result.SuspiciousAccounts {
		if result.SuspiciousAccounts[i].DetectedPatterns == nil {
			result.SuspiciousAccounts[i].DetectedPatterns = []string{}
		}
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
