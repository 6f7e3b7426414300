// Package chi exposes retrieval over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/cache"
	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/candidate"
	logpkg "github.com/kailas-cloud/kbsearch/internal/logger"
	healthuc "github.com/kailas-cloud/kbsearch/internal/usecase/health"
	"github.com/kailas-cloud/kbsearch/internal/usecase/retrieval"
)

const (
	maxBodyBytes   = 64 << 10
	maxQueryLength = 2000
)

// HeaderEmbeddingTokens reports embedding tokens spent on a retrieval. It is
// absent when no embedding was requested (e.g. a result cache hit).
const HeaderEmbeddingTokens = "X-Embedding-Tokens"

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest           = "bad_request"
	CodeUnauthorized         = "unauthorized"
	CodeDatastoreUnavailable = "datastore_unavailable"
	CodeInternalError        = "internal_error"
)

// Retriever runs a retrieval.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (retrieval.Result, error)
}

// CacheReporter reports and flushes cache layers.
type CacheReporter interface {
	Snapshot() []cache.Stats
	PurgeAll()
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	retriever Retriever
	caches    CacheReporter
	health    HealthChecker
	logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(r Retriever, caches CacheReporter, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{retriever: r, caches: caches, health: health, logger: logger}
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RetrieveRequest is the body of POST /v1/retrieve.
type RetrieveRequest struct {
	Query string `json:"query"`
}

// RetrieveResponse is the three-part result plus request metadata.
type RetrieveResponse struct {
	Query      string             `json:"query"`
	Cached     bool               `json:"cached"`
	Structured []candidate.Record `json:"structured_results"`
	TopVector  []candidate.Record `json:"top_vector_results"`
	Merged     []candidate.Record `json:"merged_display_results"`
}

// CacheStatsResponse is the body of GET /v1/cache/stats.
type CacheStatsResponse struct {
	Layers []cache.Stats `json:"layers"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Retrieve handles POST /v1/retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, domain.ErrEmptyQuery.Error())
		return
	}
	if utf8.RuneCountInString(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "query is too long")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	if tokens, used := usage.Tokens(); used {
		w.Header().Set(HeaderEmbeddingTokens, strconv.Itoa(tokens))
	}

	writeJSON(w, http.StatusOK, RetrieveResponse{
		Query:      query,
		Cached:     res.Cached,
		Structured: res.Structured,
		TopVector:  res.TopVector,
		Merged:     res.Merged,
	})
}

// CacheStats handles GET /v1/cache/stats.
func (s *Server) CacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CacheStatsResponse{Layers: s.caches.Snapshot()})
}

// PurgeCaches handles DELETE /v1/cache.
func (s *Server) PurgeCaches(w http.ResponseWriter, r *http.Request) {
	s.caches.PurgeAll()
	logpkg.FromContext(r.Context()).Info("Cache layers purged")
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

func (s *Server) handleError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := logpkg.FromContext(ctx)
	if errors.Is(err, domain.ErrDatastoreUnavailable) {
		logger.Warn("Retrieval unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, CodeDatastoreUnavailable, domain.ErrDatastoreUnavailable.Error())
		return
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
