// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/okian/matchreport/internal/domain/access"
	"github.com/okian/matchreport/internal/domain/model"
	"github.com/okian/matchreport/internal/domain/stats"
	"github.com/okian/matchreport/internal/domain/types"
	"github.com/okian/matchreport/pkg/logger"
)

// RoleHeader carries the caller's staff role on mutating requests.
const RoleHeader = "X-Staff-Role"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	access.Authorizer

	Score(ctx context.Context, r model.Report, hint stats.Hint) (types.ReportView, error)

	CreateReport(ctx context.Context, r model.Report) (types.ReportView, error)
	GetReport(ctx context.Context, id string, hint stats.Hint) (types.ReportView, error)
	ListReports(ctx context.Context, limit int) ([]types.ReportHeader, error)
	UpdateReport(ctx context.Context, r model.Report) (types.ReportView, error)
	ReplaceActions(ctx context.Context, id string, actions []model.Action) (types.ReportView, error)
	ReplaceStats(ctx context.Context, id string, bag model.StatBag) (types.ReportView, error)
	DeleteReport(ctx context.Context, id string) error
	Recalculate(ctx context.Context, id string) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	scoreHandler   *ScoreHandler
	reportsHandler *ReportsHandler
	corsOrigins    []string
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithCORSOrigins allows browser calls from the given origins.
func WithCORSOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		scoreHandler:   NewScoreHandler(deps),
		reportsHandler: NewReportsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to router.
func (s *Server) Register(router *mux.Router) {
	if router == nil {
		panic("router is nil")
	}
	rh := s.reportsHandler

	router.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	router.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)
	router.HandleFunc("/score", MetricsMiddleware(s.scoreHandler.HandleScore, "score")).Methods(http.MethodPost)

	router.HandleFunc("/reports", MetricsMiddleware(rh.HandleList, "reports")).Methods(http.MethodGet)
	router.HandleFunc("/reports", MetricsMiddleware(rh.requireRole(rh.HandleCreate), "reports")).Methods(http.MethodPost)
	router.HandleFunc("/reports/{id}", MetricsMiddleware(rh.HandleGet, "report")).Methods(http.MethodGet)
	router.HandleFunc("/reports/{id}", MetricsMiddleware(rh.requireRole(rh.HandleUpdate), "report")).Methods(http.MethodPut)
	router.HandleFunc("/reports/{id}", MetricsMiddleware(rh.requireRole(rh.HandleDelete), "report")).Methods(http.MethodDelete)
	router.HandleFunc("/reports/{id}/actions", MetricsMiddleware(rh.requireRole(rh.HandleReplaceActions), "report_actions")).Methods(http.MethodPut)
	router.HandleFunc("/reports/{id}/stats", MetricsMiddleware(rh.requireRole(rh.HandleReplaceStats), "report_stats")).Methods(http.MethodPut)
	router.HandleFunc("/reports/{id}/recalc", MetricsMiddleware(rh.requireRole(rh.HandleRecalc), "report_recalc")).Methods(http.MethodPost)
}

// Handler builds the router, registers the API routes and wraps it with
// panic recovery and, when origins are configured, CORS.
func (s *Server) Handler(extra ...func(*mux.Router)) http.Handler {
	router := mux.NewRouter()
	s.Register(router)
	for _, fn := range extra {
		fn(router)
	}

	var h http.Handler = router
	if len(s.corsOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(s.corsOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type", RoleHeader}),
		)(h)
	}
	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))(h)
}

// recoveryLogger routes recovered panics to the service logger.
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	logger.Get().Named("http").Error(context.Background(), "handler panic", logger.Any("panic", v))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes before writing the header so an unencodable body
// becomes a 500 instead of a truncated success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		logger.Get().Named("http").Error(context.Background(), "encode response", logger.Error(err))
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(errorResponse{
			Code:    "internal_error",
			Message: http.StatusText(http.StatusInternalServerError),
		})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure picks the status from the error kind.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}
