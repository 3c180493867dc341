// Package assets serves one pod's built files with the permissive cross-origin
// headers every pod needs so the shell, on another origin, can load it.
package assets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GoCodeAlone/micropods"
	"github.com/GoCodeAlone/micropods/internal/httpserver"
)

var ErrNoDescriptor = errors.New("asset server needs a build descriptor")

// Config configures an asset server. Port 0 means the descriptor's port.
type Config struct {
	// Dir is the build output directory. Empty serves only the manifest.
	Dir string

	Host            string
	Port            int
	ShutdownTimeout time.Duration

	// SharedVersions are the concrete versions bundled for the shared
	// packages, reported in the generated manifest.
	SharedVersions map[string]string
}

// Server serves one pod.
type Server struct {
	descriptor *micropods.BuildDescriptor
	config     Config
	manifest   []byte
	router     chi.Router
	server     *httpserver.Server
	logger     micropods.Logger
}

// New creates the asset server of the pod described by d.
func New(d *micropods.BuildDescriptor, config Config, logger micropods.Logger) (*Server, error) {
	if d == nil {
		return nil, ErrNoDescriptor
	}
	if config.Port == 0 {
		config.Port = d.Server.Port
	}
	manifest, err := micropods.NewManifest(d, config.SharedVersions).JSON()
	if err != nil {
		return nil, err
	}
	s := &Server{
		descriptor: d,
		config:     config,
		manifest:   manifest,
		logger:     micropods.LoggerOrNop(logger),
	}
	s.router = s.newRouter()
	return s, nil
}

func (s *Server) newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Get(micropods.ManifestPath, s.serveManifest)
	if s.config.Dir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.Dir)))
	}
	return r
}

// corsMiddleware sets the descriptor's server headers on every response, with
// the permissive CORS headers always last, and answers preflight requests
// itself.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range s.descriptor.Server.Headers {
			w.Header().Set(k, v)
		}
		for k, v := range micropods.CORSHeaders() {
			w.Header().Set(k, v)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) serveManifest(w http.ResponseWriter, r *http.Request) {
	if s.config.Dir != "" {
		built := filepath.Join(s.config.Dir, filepath.FromSlash(micropods.ManifestPath))
		if _, err := os.Stat(built); err == nil {
			http.ServeFile(w, r, built)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(s.manifest)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address.
func (s *Server) Start(ctx context.Context) error {
	if s.server == nil {
		s.server = httpserver.New(httpserver.Config{
			Host:            s.config.Host,
			Port:            s.config.Port,
			ShutdownTimeout: s.config.ShutdownTimeout,
		}, s.router, s.logger)
	}
	if err := s.server.Start(ctx); err != nil {
		return fmt.Errorf("pod %s: %w", s.descriptor.Name, err)
	}
	s.logger.Info("Serving pod assets", "pod", s.descriptor.Name, "address", s.server.Addr(), "dir", s.config.Dir)
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.server == nil {
		return ""
	}
	return s.server.Addr()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return httpserver.ErrServerNotStarted
	}
	return s.server.Stop(ctx)
}
