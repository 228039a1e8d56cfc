package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tubecast/internal/accounts"
	"tubecast/internal/authflow"
	"tubecast/internal/config"
	"tubecast/internal/conversation"
	"tubecast/internal/logging"
	"tubecast/internal/notify"
	"tubecast/internal/store"
)

// Launcher triggers pipeline runs; satisfied by pipeline.Launcher.
type Launcher interface {
	TryLaunch(ctx context.Context, sender string) bool
}

// Server hosts the webhook and OAuth callback endpoints.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	registry *accounts.Registry
	manager  *conversation.Manager
	flow     *authflow.Flow
	launcher Launcher
	notifier notify.Notifier
	logger   *slog.Logger

	httpClient *http.Client

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	listener net.Listener
	server   *http.Server
}

// Option configures the server.
type Option func(*Server)

// WithMediaHTTPClient injects the client used to pull inbound attachments
// (primarily for tests).
func WithMediaHTTPClient(client *http.Client) Option {
	return func(s *Server) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// NewServer wires the HTTP surface.
func NewServer(
	cfg *config.Config,
	st *store.Store,
	registry *accounts.Registry,
	manager *conversation.Manager,
	flow *authflow.Flow,
	launcher Launcher,
	notifier notify.Notifier,
	logger *slog.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		cfg:        cfg,
		store:      st,
		registry:   registry,
		manager:    manager,
		flow:       flow,
		launcher:   launcher,
		notifier:   notifier,
		logger:     logging.NewComponentLogger(logger, "httpapi"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		locks:      make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/webhook", s.handleHealth)
	r.Post("/webhook", s.handleWebhook)
	r.Get("/oauth/callback", s.handleOAuthCallback)

	s.server = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving on the configured bind address. Shutdown is tied to
// ctx cancellation.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Paths.Bind)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down and releases the listener.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// senderLock returns the mutex serializing one sender's webhook deliveries.
func (s *Server) senderLock(sender string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[sender]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sender] = lock
	}
	return lock
}
