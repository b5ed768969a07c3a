// Package server exposes the analysis service over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/Siddhant-K-code/minelab/pkg/config"
	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/logging"
	"github.com/Siddhant-K-code/minelab/pkg/metrics"
	"github.com/Siddhant-K-code/minelab/pkg/service"
	"github.com/Siddhant-K-code/minelab/pkg/telemetry"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests.
const ShutdownTimeout = 30 * time.Second

// Config holds HTTP settings.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64

	// RateLimit is requests per minute per client IP. 0 disables limiting.
	RateLimit   int
	CORSOrigins []string
	APIKeys     []string
}

// ConfigFrom extracts server settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		RateLimit:    cfg.Server.RateLimit,
		CORSOrigins:  cfg.Server.CORSOrigins,
		APIKeys:      cfg.Auth.APIKeys,
	}
}

// Addr returns host:port.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Server holds the API server state.
type Server struct {
	svc       *service.Service
	metrics   *metrics.Metrics
	tracer    *telemetry.Provider
	cfg       Config
	validKeys map[string]bool
	hasAuth   bool
	handler   http.Handler
	http      *http.Server
	log       *zap.SugaredLogger
}

// New builds a server around svc. m and tp may be nil.
func New(svc *service.Service, cfg Config, m *metrics.Metrics, tp *telemetry.Provider) *Server {
	if tp == nil {
		tp = telemetry.Noop()
	}

	validKeys := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		key = strings.TrimSpace(key)
		if key != "" {
			validKeys[key] = true
		}
	}

	s := &Server{
		svc:       svc,
		metrics:   m,
		tracer:    tp,
		cfg:       cfg,
		validKeys: validKeys,
		hasAuth:   len(validKeys) > 0,
		log:       logging.Named("server"),
	}
	s.handler = s.routes()
	s.http = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// HasAuth reports whether API keys are enforced on /v1 routes.
func (s *Server) HasAuth() bool {
	return s.hasAuth
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.instrument("health", s.handleHealth))
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(s.cfg.RateLimit, time.Minute))
		}
		r.Use(s.authenticate)

		r.Post("/kmeans", s.instrument("kmeans", s.handleKMeans))
		r.Post("/kmeans/sweep", s.instrument("sweep", s.handleSweep))
		r.Post("/apriori", s.instrument("apriori", s.handleApriori))
		r.Post("/apriori/transactions", s.instrument("apriori_transactions", s.handleTransactions))
		r.Post("/pca", s.instrument("pca", s.handlePCA))
		r.Get("/datasets", s.instrument("datasets", s.handleDatasets))
		r.Get("/runs", s.instrument("runs", s.handleListRuns))
		r.Get("/runs/{id}", s.instrument("run", s.handleGetRun))
	})

	return r
}

// instrument wraps h with a request span and, when enabled, request metrics.
func (s *Server) instrument(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	traced := func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.StartRequest(r.Context(), endpoint)
		defer span.End()
		h(w, r.WithContext(ctx))
	}
	if s.metrics == nil {
		return traced
	}
	return s.metrics.Middleware(endpoint, traced)
}

// authenticate enforces bearer API keys when any are configured.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.hasAuth {
			next.ServeHTTP(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header required", "")
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")
		if !s.validKeys[token] {
			writeError(w, http.StatusUnauthorized, "Invalid API key", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves until Shutdown. A clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.log.Infow("api server starting", "addr", s.cfg.Addr(), "auth", s.hasAuth, "keys", len(s.validKeys))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server error")
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Infow("api server shutting down")
	return s.http.Shutdown(ctx)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server shutdown")
	}
	return <-errCh
}

// Endpoints lists the routes for the startup banner.
func Endpoints() []string {
	return []string{
		"POST /v1/kmeans",
		"POST /v1/kmeans/sweep",
		"POST /v1/apriori",
		"POST /v1/apriori/transactions",
		"POST /v1/pca",
		"GET  /v1/datasets",
		"GET  /v1/runs",
		"GET  /v1/runs/{id}",
		"GET  /health",
		"GET  /metrics",
	}
}
