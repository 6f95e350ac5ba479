// Package server is the development server: it exposes the link index over
// HTTP and pushes live reload notifications when the content changes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/recera/linkgraph/pkg/graphviewer"
	"github.com/recera/linkgraph/pkg/linkindex"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 5 * time.Second

// Config holds the server's query defaults.
type Config struct {
	Depth      int     // neighborhood depth when the request has none (default 1)
	Width      float64 // snapshot width (default 600)
	Height     float64 // snapshot height (default 300)
	Background string  // snapshot background; empty for transparent
	Graph      graphviewer.Options
	Logger     *slog.Logger
}

// Server answers link index queries.
type Server struct {
	index  *linkindex.Index
	hub    *Hub
	cfg    Config
	logger *slog.Logger
}

// New creates a server over index.
func New(index *linkindex.Index, cfg Config) *Server {
	if cfg.Depth <= 0 {
		cfg.Depth = 1
	}
	if cfg.Width <= 0 {
		cfg.Width = 600
	}
	if cfg.Height <= 0 {
		cfg.Height = 300
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{index: index, hub: NewHub(logger), cfg: cfg, logger: logger}
}

// Hub returns the live reload hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /link-index.json", counted("index", s.serveIndex))
	mux.HandleFunc("GET /api/backlinks", counted("backlinks", s.serveBacklinks))
	mux.HandleFunc("GET /api/neighborhood", counted("neighborhood", s.serveNeighborhood))
	mux.HandleFunc("GET /api/embed", counted("embed", s.serveEmbed))
	mux.HandleFunc("GET /api/snapshot.svg", counted("snapshot", s.serveSnapshot))
	mux.Handle("GET /livereload", s.hub)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		s.hub.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("graceful shutdown failed", "err", err)
		}
	}()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return err
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	a := s.index.Artifact(r.Context())
	w.Header().Set("Cache-Control", "no-cache")
	if a.Meta.BuildID != "" {
		etag := `"` + a.Meta.BuildID + `"`
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) serveBacklinks(w http.ResponseWriter, r *http.Request) {
	id, ok := pageParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.index.Backlinks(r.Context(), id))
}

func (s *Server) serveNeighborhood(w http.ResponseWriter, r *http.Request) {
	id, ok := pageParam(w, r)
	if !ok {
		return
	}
	depth, ok := s.depthParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.index.Neighborhood(r.Context(), id, depth))
}

func (s *Server) embed(w http.ResponseWriter, r *http.Request) (linkindex.Embed, bool) {
	id, ok := pageParam(w, r)
	if !ok {
		return linkindex.Embed{}, false
	}
	depth, ok := s.depthParam(w, r)
	if !ok {
		return linkindex.Embed{}, false
	}
	g := s.index.Neighborhood(r.Context(), id, depth)
	if len(g.Nodes) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("page %q is not in the link index", id))
		return linkindex.Embed{}, false
	}
	return linkindex.Embed{Current: id, Graph: g}, true
}

func (s *Server) serveEmbed(w http.ResponseWriter, r *http.Request) {
	if e, ok := s.embed(w, r); ok {
		writeJSON(w, http.StatusOK, e)
	}
}

func (s *Server) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	width, ok := floatParam(w, r, "width", s.cfg.Width)
	if !ok {
		return
	}
	height, ok := floatParam(w, r, "height", s.cfg.Height)
	if !ok {
		return
	}
	e, ok := s.embed(w, r)
	if !ok {
		return
	}

	opts := s.cfg.Graph
	svg, err := graphviewer.Snapshot(e, width, height, s.cfg.Background, &opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(svg)
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// counted records each request to route in requestsTotal.
func counted(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		requestsTotal.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
	}
}

// pageParam reads the id query parameter as an absolute page id.
func pageParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing id parameter")
		return "", false
	}
	if !strings.HasPrefix(id, "/") {
		id = "/" + id
	}
	return id, true
}

func (s *Server) depthParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("depth")
	if raw == "" {
		return s.cfg.Depth, true
	}
	depth, err := strconv.Atoi(raw)
	if err != nil || depth < 0 {
		writeError(w, http.StatusBadRequest, "depth must be a non-negative integer")
		return 0, false
	}
	return depth, true
}

func floatParam(w http.ResponseWriter, r *http.Request, name string, def float64) (float64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !(v > 0 && v <= 10000) {
		writeError(w, http.StatusBadRequest, name+" must be a positive number")
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
