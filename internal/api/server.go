package api

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"ripit/internal/downloader"
	"ripit/internal/ytdl"
	"ripit/pkg/models"
)

var (
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrServerNotRunning     = errors.New("server is not running")
)

// Version is reported by the status endpoint
var Version = "0.1.0"

// Server represents the HTTP server
type Server struct {
	config      *models.Config
	downloader  *downloader.Downloader
	tools       *ytdl.Manager
	cookiesPath string
	limiter     *rate.Limiter
	page        *template.Template
	logger      zerolog.Logger
	router      *chi.Mux
	server      *http.Server
	listener    net.Listener
	running     bool
	mu          sync.RWMutex
}

// NewServer creates a new HTTP server. tools may be nil, in which case the
// status endpoint reports no tool information.
func NewServer(config *models.Config, dl *downloader.Downloader, tools *ytdl.Manager, cookiesPath string, logger zerolog.Logger) *Server {
	s := &Server{
		config:      config,
		downloader:  dl,
		tools:       tools,
		cookiesPath: cookiesPath,
		limiter:     newLimiter(config.Server.RateLimit),
		page:        template.Must(template.New("page").Parse(pageTemplate)),
		logger:      logger.With().Str("component", "api").Logger(),
		router:      chi.NewRouter(),
	}

	s.setupRoutes()

	return s
}

// newLimiter allows perMinute downloads per minute with an equal burst; zero disables limiting
func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	// Form
	s.router.Get("/", s.handleIndex)
	s.router.Post("/download", s.handleDownload)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Post("/cookies", s.handleCookies)
	})
}

// requestLogger logs each request through zerolog
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrServerAlreadyRunning
	}

	addr := s.GetAddr()

	// Create listener
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.listener = listener
	// No write timeout: a download response waits for the whole extraction
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.server = httpServer

	s.running = true

	// Start server in goroutine
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("server error")
		}
	}()

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("server listening")

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrServerNotRunning
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.running = false
	s.server = nil
	s.listener = nil

	return nil
}

// IsRunning returns whether the server is currently running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// GetAddr returns the configured server address
func (s *Server) GetAddr() string {
	return net.JoinHostPort(s.config.Server.Host, fmt.Sprintf("%d", s.config.Server.Port))
}

// GetActualAddr returns the actual listening address (useful when port is 0)
func (s *Server) GetActualAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}

	return s.GetAddr()
}
