// Package server exposes the analyzers and the string rewriter over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/efebarandurmaz/lodestone/internal/analyzers"
	"github.com/efebarandurmaz/lodestone/internal/llm"
	"github.com/efebarandurmaz/lodestone/internal/observability"
	"github.com/efebarandurmaz/lodestone/internal/resource"
	"github.com/efebarandurmaz/lodestone/internal/rewrite"
)

// Config configures the HTTP API.
type Config struct {
	Addr           string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	Version        string
}

// Deps are the components the API serves. Nil analyzers make their
// endpoints answer 503.
type Deps struct {
	Program  *analyzers.ProgramAnalyzer
	Function *analyzers.FunctionAnalyzer
	Rewriter *rewrite.Rewriter
	Metrics  *observability.Metrics
	Logger   *slog.Logger

	// ProviderName is reported by /healthz.
	ProviderName string
}

// Server is the lodestone HTTP API.
type Server struct {
	cfg    Config
	deps   Deps
	router *chi.Mux
	health *Health
	http   *http.Server
}

// New builds the router. Call Health().SetReady once the server listens.
func New(cfg Config, deps Deps) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 16 << 20
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetrics()
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: chi.NewRouter(),
		health: NewHealth(cfg.Version),
	}
	s.health.RegisterCheck("llm", ProviderCheck(deps.ProviderName, deps.Program != nil || deps.Function != nil))
	s.setupRoutes()
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)

	s.health.Mount(s.router)
	s.router.Handle("/metrics", s.deps.Metrics.Handler())

	s.router.Route("/v1", func(r chi.Router) {
		if s.cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		}
		r.Use(s.trackInFlight)
		r.Post("/analyses/program", s.handleProgram)
		r.Post("/analyses/function", s.handleFunction)
		r.Post("/rewrites", s.handleRewrite)
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Health returns the probe state.
func (s *Server) Health() *Health { return s.health }

// ListenAndServe serves until Shutdown. It returns nil after a graceful stop.
func (s *Server) ListenAndServe() error {
	s.deps.Logger.Info("listening", "addr", s.cfg.Addr)
	s.health.SetReady(true)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting traffic and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	return s.http.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.deps.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) trackInFlight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		done := s.deps.Metrics.TrackInFlight()
		defer done()
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps analysis errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case llm.IsProviderError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleProgram(w http.ResponseWriter, r *http.Request) {
	if s.deps.Program == nil {
		writeError(w, http.StatusServiceUnavailable, llm.ErrNoProvider.Error())
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty program")
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}

	report, err := s.deps.Program.Report(r.Context(), resource.Program{Name: name, Data: data})
	if err != nil {
		s.deps.Logger.Error("program analysis failed", "name", name, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type functionRequest struct {
	Symbol   string `json:"symbol"`
	Address  uint64 `json:"address,omitempty"`
	Assembly string `json:"assembly"`
}

func (s *Server) handleFunction(w http.ResponseWriter, r *http.Request) {
	if s.deps.Function == nil {
		writeError(w, http.StatusServiceUnavailable, llm.ErrNoProvider.Error())
		return
	}
	var req functionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Symbol == "" || req.Assembly == "" {
		writeError(w, http.StatusBadRequest, "symbol and assembly are required")
		return
	}

	block := resource.ComplexBlock{Symbol: req.Symbol, Address: req.Address, Assembly: req.Assembly}
	report := analyzers.NewFunctionReport(block, s.deps.Function.Analyze(r.Context(), block))
	code := http.StatusOK
	if report.Outcome == analyzers.OutcomeFailed {
		code = http.StatusBadGateway
	}
	writeJSON(w, code, report)
}

type rewriteRequest struct {
	Text string `json:"text"`
}

type rewriteResponse struct {
	Rewritten string         `json:"rewritten"`
	Changed   bool           `json:"changed"`
	Status    rewrite.Status `json:"status"`
	Retries   int            `json:"retries"`
	Error     string         `json:"error,omitempty"`
}

func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	if s.deps.Rewriter == nil {
		writeError(w, http.StatusServiceUnavailable, llm.ErrNoProvider.Error())
		return
	}
	var req rewriteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	res := s.deps.Rewriter.Rewrite(r.Context(), req.Text)
	resp := rewriteResponse{
		Rewritten: req.Text,
		Changed:   res.Changed(),
		Status:    res.Status,
		Retries:   res.Retries,
	}
	if res.Changed() {
		resp.Rewritten = res.Rewritten
	}
	code := http.StatusOK
	if res.Err != nil {
		resp.Error = res.Err.Error()
		code = http.StatusBadGateway
	}
	writeJSON(w, code, resp)
}
