// Package server provides the HTTP server implementation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/feedbackhub/feedbackhub/internal/config"
	"github.com/feedbackhub/feedbackhub/internal/handlers"
	"github.com/feedbackhub/feedbackhub/internal/metrics"
	"github.com/feedbackhub/feedbackhub/internal/middleware"
	"github.com/feedbackhub/feedbackhub/internal/ratelimit"
	"github.com/feedbackhub/feedbackhub/internal/services"
	"github.com/feedbackhub/feedbackhub/pkg/logger"
)

// Server represents the HTTP server.
type Server struct {
	cfg             *config.Config
	log             *logger.Logger
	router          *chi.Mux
	httpServer      *http.Server
	healthHandler   *handlers.HealthHandler
	feedbackHandler *handlers.FeedbackHandler
	chatbotHandler  *handlers.ChatbotHandler
	limiters        *ratelimit.Registry

	listener     net.Listener
	running      bool
	stopJanitors context.CancelFunc
	janitorsDone chan struct{}
	mu           sync.RWMutex
}

// New creates a new Server instance. limiterOpts are applied to every rate
// limiter after the configured ones.
func New(cfg *config.Config, log *logger.Logger, limiterOpts ...ratelimit.Option) *Server {
	s := &Server{
		cfg:            cfg,
		log:            log,
		healthHandler:  handlers.NewHealthHandler(),
		chatbotHandler: handlers.NewChatbotHandler(services.NewChatbotService(nil, log)),
	}

	opts := append([]ratelimit.Option{
		ratelimit.WithSweepThreshold(cfg.Rate.SweepThreshold),
		ratelimit.WithSweepHook(func(name string, removed, _ int) {
			metrics.RecordRateLimitSweep(name, removed)
		}),
		ratelimit.WithSizeHook(metrics.SetRateLimitEntries),
	}, limiterOpts...)

	s.limiters = ratelimit.NewRegistry(
		ratelimit.Config{Requests: cfg.Rate.ChatbotRequests, Window: cfg.Rate.ChatbotWindow},
		ratelimit.Config{Requests: cfg.Rate.FeedbackRequests, Window: cfg.Rate.FeedbackWindow},
		ratelimit.Config{Requests: cfg.Rate.GeneralRequests, Window: cfg.Rate.GeneralWindow},
		opts...,
	)

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

// buildRouter wires global middleware and routes. Each protected route
// carries its own limiter so quotas never leak between categories.
func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(middleware.Logging(s.log))
	r.Use(middleware.ClientID(s.identifierConfig()))

	r.Get("/health", s.healthHandler.Health)
	r.Get("/ready", s.healthHandler.Ready)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	chatbotLimit := s.rateLimit(s.limiters.Chatbot)
	feedbackLimit := s.rateLimit(s.limiters.Feedback)
	generalLimit := s.rateLimit(s.limiters.General)

	r.Route("/api", func(r chi.Router) {
		r.With(chatbotLimit).Post("/chatbot", s.handleChat)

		r.Route("/feedback", func(r chi.Router) {
			r.With(generalLimit).Get("/", s.withFeedback((*handlers.FeedbackHandler).List))
			r.With(feedbackLimit).Post("/", s.withFeedback((*handlers.FeedbackHandler).Create))

			r.Group(func(r chi.Router) {
				r.Use(generalLimit)
				r.Get("/{id}", s.withFeedback((*handlers.FeedbackHandler).Get))
				r.Patch("/{id}", s.withFeedback((*handlers.FeedbackHandler).Upvote))
				r.Delete("/{id}", s.withFeedback((*handlers.FeedbackHandler).Delete))
				r.Put("/{id}/status", s.withFeedback((*handlers.FeedbackHandler).UpdateStatus))
				r.Get("/{id}/comments", s.withFeedback((*handlers.FeedbackHandler).ListComments))
				r.Post("/{id}/comments", s.withFeedback((*handlers.FeedbackHandler).AddComment))
			})
		})
	})

	return r
}

func (s *Server) identifierConfig() middleware.IdentifierConfig {
	return middleware.IdentifierConfig{
		Fallback:      s.cfg.Rate.FallbackIdentifier,
		UseRemoteAddr: s.cfg.Rate.UseRemoteAddr,
	}
}

func (s *Server) rateLimit(l *ratelimit.FixedWindow) func(http.Handler) http.Handler {
	return middleware.RateLimit(l, middleware.RateLimitConfig{
		Name:       l.Name(),
		Identifier: s.identifierConfig(),
		Logger:     s.log,
	})
}

// handleChat routes to the current chatbot handler.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	h := s.chatbotHandler
	s.mu.RUnlock()
	h.Chat(w, r)
}

// withFeedback resolves the feedback handler per request and answers 503
// while no store is configured.
func (s *Server) withFeedback(fn func(*handlers.FeedbackHandler, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		h := s.feedbackHandler
		s.mu.RUnlock()

		if h == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"feedback store not configured","code":"SERVICE_UNAVAILABLE"}` + "\n"))
			return
		}
		fn(h, w, r)
	}
}

// Start starts the HTTP server and, when configured, the limiter janitors.
func (s *Server) Start() error {
	addr := s.cfg.Server.Address()

	// Listen first so Addr reports the real port when configured with 0.
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.running = true
	s.startJanitorsLocked()
	s.mu.Unlock()

	s.log.Info("server starting",
		"address", listener.Addr().String(),
		"chatbot_limit", s.limiters.Chatbot.Limit(),
		"feedback_limit", s.limiters.Feedback.Limit(),
		"general_limit", s.limiters.General.Limit(),
	)

	err = s.httpServer.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.stop()
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func (s *Server) startJanitorsLocked() {
	interval := s.cfg.Rate.JanitorInterval
	if interval <= 0 || s.stopJanitors != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.stopJanitors = cancel
	s.janitorsDone = done

	go func() {
		defer close(done)
		s.limiters.RunJanitors(ctx, interval)
	}()

	s.log.Info("rate limit janitors started", "interval", interval.String())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("server shutting down")

	s.healthHandler.SetReady(false)

	err := s.httpServer.Shutdown(ctx)
	s.stop()

	if err != nil {
		s.log.Error("shutdown error", "error", err.Error())
		return err
	}

	s.log.Info("server stopped")
	return nil
}

// stop marks the server as not running and waits for the janitors to exit.
func (s *Server) stop() {
	s.mu.Lock()
	cancel, done := s.stopJanitors, s.janitorsDone
	s.stopJanitors, s.janitorsDone = nil, nil
	s.running = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's address.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HealthHandler returns the health handler.
func (s *Server) HealthHandler() *handlers.HealthHandler {
	return s.healthHandler
}

// Limiters returns the rate limiters.
func (s *Server) Limiters() *ratelimit.Registry {
	return s.limiters
}

// SetFeedbackService enables the feedback routes.
func (s *Server) SetFeedbackService(svc services.FeedbackService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedbackHandler = handlers.NewFeedbackHandler(svc, s.log)
}

// SetChatbotService replaces the chatbot backend.
func (s *Server) SetChatbotService(svc services.ChatbotService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatbotHandler = handlers.NewChatbotHandler(svc)
}
