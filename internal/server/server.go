// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

// Package server exposes the graph SSOT over HTTP: chi for routing and
// middleware, huma for typed operations and the OpenAPI document.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/brainbase-dev/brainbase/internal/ssot"
	bberr "github.com/brainbase-dev/brainbase/pkg/errors"
)

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr   string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wraps a chi router with the huma API and the SSOT service.
type Server struct {
	router chi.Router
	api    huma.API
	cfg    Config
	svc    *ssot.Service
	access AccessProvider
	log    *slog.Logger
}

// apiError is the flat error body every failure returns: one "error"
// field, status carried out of band.
type apiError struct {
	status  int
	Message string `json:"error"`
}

func (e *apiError) Error() string             { return e.Message }
func (e *apiError) GetStatus() int            { return e.status }
func (e *apiError) ContentType(string) string { return "application/json" }

func init() {
	huma.NewError = func(status int, msg string, _ ...error) huma.StatusError {
		return &apiError{status: status, Message: msg}
	}
}

// New creates a Server with chi router, huma API, health endpoint, CORS,
// and the access middleware, and registers all SSOT routes.
func New(cfg Config, svc *ssot.Service, access AccessProvider, log *slog.Logger) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, bberr.New(bberr.CodeConfigInvalid, "listen address is required")
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if access == nil {
		access = DenyAllAccessProvider{}
	}
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()

	srv := &Server{
		router: r,
		cfg:    cfg,
		svc:    svc,
		access: access,
		log:    log,
	}

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Use(srv.accessMiddleware)

	humaConfig := huma.DefaultConfig("Brainbase Graph SSOT", "0.1.0")
	humaConfig.Info.Description = "Access-controlled organizational knowledge graph"
	srv.api = humachi.New(r, humaConfig)

	huma.Register(srv.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*HealthResponse, error) {
		return &HealthResponse{Body: HealthBody{Status: "ok"}}, nil
	})

	srv.registerRoutes()

	return srv, nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server and blocks until the context is cancelled,
// then performs graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return bberr.Wrapf(err, bberr.CodeServerFailure, "listening on %s", s.cfg.ListenAddr)
	}
	s.log.Info("http server listening", "addr", ln.Addr().String())

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return bberr.Wrap(err, bberr.CodeServerFailure, "shutting down")
	}
	return <-errCh
}

// HealthBody is the JSON body of the health endpoint response.
type HealthBody struct {
	Status string `json:"status" example:"ok" doc:"Health status"`
}

// HealthResponse wraps the health check response.
type HealthResponse struct {
	Body HealthBody
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderRole, HeaderProjects, HeaderClearance},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// svcError converts a service error into the API error shape with the
// status its code maps to. Internal failures keep their detail in logs
// only.
func (s *Server) svcError(err error) error {
	status := bberr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error("internal failure", "error", err)
		return huma.NewError(status, "internal server error")
	}
	return huma.NewError(status, err.Error())
}
