package chi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/domain/query"
	"github.com/kailas-cloud/recdex/internal/domain/recommendation"
	"github.com/kailas-cloud/recdex/internal/index"
	"github.com/kailas-cloud/recdex/internal/logger"
	"github.com/kailas-cloud/recdex/internal/metrics"
	"github.com/kailas-cloud/recdex/internal/repository/labeled"
	healthuc "github.com/kailas-cloud/recdex/internal/usecase/health"
	"github.com/kailas-cloud/recdex/internal/version"
)

const (
	// DefaultMaxBatchQueries caps the number of queries in one batch request.
	DefaultMaxBatchQueries = 100

	maxQueryBodyBytes = 64 << 10
	maxBatchBodyBytes = 8 << 20
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the recdex HTTP API.
type Server struct {
	recommender Recommender
	evaluator   Evaluator
	rebuilder   Rebuilder
	health      HealthChecker

	maxBatch      int
	corsOrigins   []string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. evaluator and rebuilder can be nil,
// which disables their routes.
func NewServer(
	recommender Recommender,
	evaluator Evaluator,
	rebuilder Rebuilder,
	health HealthChecker,
	log *zap.Logger,
) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		recommender: recommender,
		evaluator:   evaluator,
		rebuilder:   rebuilder,
		health:      health,
		maxBatch:    DefaultMaxBatchQueries,
		logger:      log,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery, true),
		sentinelHandler(domain.ErrEvaluationData, http.StatusBadRequest, CodeValidationFailed, true),
		sentinelHandler(domain.ErrConfiguration, http.StatusUnprocessableEntity, CodeConfiguration, true),
		sentinelHandler(index.ErrBuildInProgress, http.StatusConflict, CodeRebuildInProgress, false),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited, false),
		sentinelHandler(domain.ErrEmbedding, http.StatusBadGateway, CodeEmbeddingError, false),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingError, false),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout, false),
	}
	return s
}

// WithMaxBatchQueries configures the batch request size limit.
func (s *Server) WithMaxBatchQueries(n int) *Server {
	if n > 0 {
		s.maxBatch = n
	}
	return s
}

// WithCORSOrigins enables CORS for the given origins.
func (s *Server) WithCORSOrigins(origins []string) *Server {
	s.corsOrigins = origins
	return s
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/recommend", s.RecommendGet)
	r.Post("/recommend", s.RecommendPost)
	r.Post("/batch_predict", s.BatchPredict)
	r.Get("/catalog/stats", s.CatalogStats)
	if s.evaluator != nil {
		r.Post("/evaluate", s.Evaluate)
	}
	if s.rebuilder != nil {
		r.Post("/catalog/rebuild", s.RebuildCatalog)
	}
	return r
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Items:   report.Items,
		Checks:  checks,
	})
}

// RecommendGet handles GET /recommend?query=...&limit=N.
func (s *Server) RecommendGet(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	text := params.Get("query")
	if text == "" {
		text = params.Get("q")
	}

	limit, err := parseLimit(params.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	if len(text) > query.MaxLength {
		writeError(w, http.StatusBadRequest, CodeInvalidQuery,
			fmt.Sprintf("query too long (max %d bytes)", query.MaxLength))
		return
	}

	s.recommend(w, r, query.FromText(text), limit)
}

// RecommendPost handles POST /recommend.
func (s *Server) RecommendPost(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if !s.decode(w, r, maxQueryBodyBytes, &req) {
		return
	}
	s.recommend(w, r, req.toQuery(), req.Limit)
}

func (s *Server) recommend(w http.ResponseWriter, r *http.Request, q query.Query, limit int) {
	set, err := s.recommender.Recommend(r.Context(), q, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setToDTO(&set))
}

// BatchPredict handles POST /batch_predict and answers with predictions CSV.
func (s *Server) BatchPredict(w http.ResponseWriter, r *http.Request) {
	var req BatchPredictRequest
	if !s.decode(w, r, maxBatchBodyBytes, &req) {
		return
	}
	if len(req.Queries) > s.maxBatch {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("batch size %d exceeds maximum %d", len(req.Queries), s.maxBatch))
		return
	}

	sets := make([]recommendation.Set, 0, len(req.Queries))
	skipped := 0
	for i := range req.Queries {
		q := &req.Queries[i]
		if strings.TrimSpace(q.Text) == "" {
			skipped++
			continue
		}
		set, err := s.recommender.Recommend(r.Context(), query.FromText(q.Text), req.Limit)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		set.QueryID = q.label()
		sets = append(sets, set)
	}
	if skipped > 0 {
		logger.FromContextOr(r.Context(), s.logger).Info("Blank batch queries skipped",
			zap.Int("skipped", skipped), zap.Int("total", len(req.Queries)))
	}

	var buf bytes.Buffer
	if err := labeled.WritePredictions(&buf, recommendation.ToRows(sets...)); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="predictions.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// Evaluate handles POST /evaluate.
func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !s.decode(w, r, maxBatchBodyBytes, &req) {
		return
	}
	if len(req.Queries) > s.maxBatch {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("batch size %d exceeds maximum %d", len(req.Queries), s.maxBatch))
		return
	}

	report, err := s.evaluator.Evaluate(r.Context(), req.toLabeled(), req.KValues)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReportToDTO(&report))
}

// CatalogStats handles GET /catalog/stats.
func (s *Server) CatalogStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statsToDTO(s.recommender.Stats()))
}

// RebuildCatalog handles POST /catalog/rebuild.
func (s *Server) RebuildCatalog(w http.ResponseWriter, r *http.Request) {
	res, err := s.rebuilder.Rebuild(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rebuildToDTO(res))
}

// decode reads a size-limited JSON body into dst and validates it.
// It writes the error response and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, CodeBadRequest,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, CodeBadRequest, "request body is empty")
		default:
			writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		}
		return false
	}
	if err := validateStruct(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return false
	}
	return true
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("limit must be a non-negative integer, got %q", raw)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// detailed handlers expose the full error text, which only ever describes client input.
func sentinelHandler(sentinel error, status int, code string, detailed bool) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if detailed {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	if errors.Is(err, context.Canceled) {
		log.Info("request canceled", zap.Error(err))
		return
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
