// Package web serves the rendered heatmap over HTTP.
package web

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/jwulff/glucoscape/internal/heatmap"
	"github.com/jwulff/glucoscape/internal/pipeline"
)

// RunFunc produces a fresh heatmap result for one request.
type RunFunc func(ctx context.Context) (*pipeline.Result, error)

// Server serves the heatmap page and its JSON summary.
type Server struct {
	httpServer *http.Server
	run        RunFunc
	cache      *otter.Cache[string, []byte] // nil when caching is off
	logger     *slog.Logger
}

// New creates a Server. Rendered responses are reused for cacheTTL; zero
// disables caching so every request loads fresh data.
func New(addr string, run RunFunc, cacheTTL time.Duration, logger *slog.Logger) *Server {
	s := &Server{run: run, logger: logger}
	if cacheTTL > 0 {
		s.cache = otter.Must(&otter.Options[string, []byte]{
			MaximumSize:      16,
			ExpiryCalculator: otter.ExpiryWriting[string, []byte](cacheTTL),
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/heatmap.json", s.handleJSON)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	s.respond(w, r, "text/html; charset=utf-8", func(result *pipeline.Result) ([]byte, error) {
		var buf bytes.Buffer
		if err := heatmap.RenderHTML(&buf, result.Heatmap); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, "application/json", formatJSON)
}

// respond serves the cached body for the path or runs the pipeline and renders a new one.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, contentType string, render func(*pipeline.Result) ([]byte, error)) {
	key := r.URL.Path
	if s.cache != nil {
		if body, ok := s.cache.GetIfPresent(key); ok {
			s.logger.Debug("cache hit", "path", key)
			write(w, contentType, body)
			return
		}
	}

	result, err := s.run(r.Context())
	if err != nil {
		s.logger.Error("failed to load heatmap", "path", key, "error", err)
		http.Error(w, "failed to load glucose data", http.StatusBadGateway)
		return
	}

	body, err := render(result)
	if err != nil {
		s.logger.Error("failed to render heatmap", "path", key, "error", err)
		http.Error(w, "failed to render heatmap", http.StatusInternalServerError)
		return
	}

	if s.cache != nil {
		s.cache.Set(key, body)
	}
	write(w, contentType, body)
}

func write(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(body)
}
