// Package api provides the HTTP server and handlers for the Tecnos chat
// widget and its small admin surface.
//
// It exposes the public chat endpoints (greeting and turn), read-only
// ticket and session-audit endpoints, a health probe and the uploaded
// image files.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stirosario/tecnos/internal/orchestrator"
	"github.com/stirosario/tecnos/internal/session"
	"github.com/stirosario/tecnos/internal/store"
)

// Server timeouts.
const (
	DefaultAddr         = ":8080"
	DefaultReadTimeout  = 15 * time.Second
	DefaultWriteTimeout = 60 * time.Second
	shutdownTimeout     = 10 * time.Second
)

// Opts holds server configuration.
type Opts struct {
	Addr       string
	UploadsDir string
}

// Option configures the server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithUploadsDir serves uploaded images from the given directory under
// /uploads/.
func WithUploadsDir(dir string) Option {
	return func(o *Opts) { o.UploadsDir = dir }
}

// Server wires the orchestrator, session manager and store behind HTTP.
type Server struct {
	sessions *session.Manager
	saver    *session.Saver
	orch     *orchestrator.Orchestrator
	st       store.Store

	addr       string
	uploadsDir string
	httpSrv    *http.Server
}

// NewServer assembles the API server.
func NewServer(sessions *session.Manager, saver *session.Saver, orch *orchestrator.Orchestrator, st store.Store, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		sessions:   sessions,
		saver:      saver,
		orch:       orch,
		st:         st,
		addr:       cfg.Addr,
		uploadsDir: cfg.UploadsDir,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/greeting", s.greetingHandler)
	mux.HandleFunc("POST /api/chat", s.chatHandler)
	mux.HandleFunc("GET /api/tickets", s.listTicketsHandler)
	mux.HandleFunc("GET /api/tickets/{id}", s.getTicketHandler)
	mux.HandleFunc("GET /api/sessions/{id}/turns", s.sessionTurnsHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	if s.uploadsDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadsDir))))
	}
	return mux
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	s.httpSrv = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
	slog.Info("Server.Run: Tecnos API listening", "addr", s.addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully and flushes pending session writes.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return s.saver.Close()
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	err := s.httpSrv.Shutdown(ctx)
	if cerr := s.saver.Close(); err == nil {
		err = cerr
	}
	return err
}
