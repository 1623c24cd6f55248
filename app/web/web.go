// Package web implements the JSON API server for the job tracker
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/stelaras36/JobTracker/app/tracker"
)

// JobStore defines store operations used by the server
type JobStore interface {
	Add(title, company string, status tracker.Status) (tracker.Entry, error)
	UpdateStatus(id string, status tracker.Status) (tracker.Entry, error)
	Delete(id string) (bool, error)
	FilterAndSearch(filter, query string) []tracker.Entry
	Get(id string) (tracker.Entry, bool)
	Counts() map[tracker.Status]int
	Len() int
}

// Server represents the web server
type Server struct {
	store        JobStore
	version      string
	authUser     string
	passwordHash string           // bcrypt hash for basic auth, empty disables auth
	limiter      *limiter.Limiter // rate limiter for mutating endpoints
	metrics      *metrics
}

// Config holds server configuration
type Config struct {
	Store        JobStore
	Version      string
	AuthUser     string  // basic auth user, defaults to "jobtracker"
	PasswordHash string  // bcrypt hash for basic auth (empty to disable)
	MutationRate float64 // max mutating requests per second per client, defaults to 10
}

// New creates a new web server
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("web server initialization failed: store is required")
	}
	if cfg.AuthUser == "" {
		cfg.AuthUser = "jobtracker"
	}
	if cfg.MutationRate <= 0 {
		cfg.MutationRate = 10
	}

	lmt := tollbooth.NewLimiter(cfg.MutationRate, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour})
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})
	lmt.SetMessage(`{"error":"too many requests"}`)
	lmt.SetMessageContentType("application/json")

	return &Server{
		store:        cfg.Store,
		version:      cfg.Version,
		authUser:     cfg.AuthUser,
		passwordHash: cfg.PasswordHash,
		limiter:      lmt,
		metrics:      newMetrics(cfg.Store),
	}, nil
}

// Run starts the web server, blocks until ctx canceled
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown server: %v", err)
		}
	}()

	log.Printf("[INFO] starting web server on %s", address)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// routes returns the http.Handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	// global middleware - applied to all routes
	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(1000),
		rest.AppInfo("jobtracker", "stelaras36", s.version),
		rest.Ping,
		rest.SizeLimit(64*1024), // 64KB max request size
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
	)

	router.Handle("GET /metrics", s.metrics.handler())

	router.Mount("/api/v1").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)
		if s.passwordHash != "" {
			log.Printf("[INFO] authentication enabled for api")
			api.Use(s.authMiddleware)
		}

		api.HandleFunc("GET /jobs", s.handleListJobs)
		api.HandleFunc("GET /jobs/{id}", s.handleGetJob)
		api.HandleFunc("GET /statuses", s.handleStatuses)
		api.HandleFunc("GET /stats", s.handleStats)

		mutating := api.With(tollbooth.HTTPMiddleware(s.limiter))
		mutating.HandleFunc("POST /jobs", s.handleAddJob)
		mutating.HandleFunc("PUT /jobs/{id}/status", s.handleUpdateStatus)
		mutating.HandleFunc("DELETE /jobs/{id}", s.handleDeleteJob)
	})

	return router
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[WARN] failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes a JSON error response
func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]string{"error": message}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[WARN] failed to encode JSON error response: %v", err)
	}
}
