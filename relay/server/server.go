// Package server exposes the conversation use cases over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/ai-counselor/relay/conversation"
	ports "github.com/ZanzyTHEbar/ai-counselor/relay/conversation/ports"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	shutdownTimeout = 15 * time.Second
	bucketIdleAfter = 10 * time.Minute
)

// MessageExecutor runs one inbound message through a use case.
type MessageExecutor interface {
	Execute(ctx context.Context, in conversation.Input) (conversation.Result, error)
}

// Replier sends a generated message back to a chat platform.
type Replier interface {
	ReplyText(ctx context.Context, replyToken, text string) error
}

// Options holds transport settings.
type Options struct {
	// ErrorStatusOK answers internal failures with 200 and a problem body.
	ErrorStatusOK      bool
	ChannelSecret      string // empty skips webhook signature checks
	WebhookConcurrency int
	PruneInterval      time.Duration // zero disables limiter pruning
}

// Deps are the collaborators behind the routes. Stateful and Replier are
// both required for the webhook route to be mounted.
type Deps struct {
	Stateless MessageExecutor
	Stateful  MessageExecutor
	Limiter   ports.RateLimiter
	Replier   Replier
}

// Server owns the gin engine and its handlers.
type Server struct {
	opts   Options
	deps   Deps
	logger zerolog.Logger
	engine *gin.Engine
}

// New builds a server with all routes registered.
func New(opts Options, deps Deps, logger zerolog.Logger) *Server {
	if opts.WebhookConcurrency < 1 {
		opts.WebhookConcurrency = 1
	}
	if deps.Limiter == nil {
		deps.Limiter = admitAll{}
	}

	s := &Server{opts: opts, deps: deps, logger: logger, engine: gin.New()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.Use(recovery(s.logger, s.opts.ErrorStatusOK), accessLog(s.logger))
	s.engine.NoRoute(requestID(), notFound)

	v1 := s.engine.Group("/v1", requestID())
	v1.GET("/health-checks", s.handleHealth)
	if s.deps.Stateless != nil {
		v1.POST("/messages", s.handleMessages)
	}
	if s.deps.Stateful != nil && s.deps.Replier != nil {
		v1.POST("/webhook", s.handleWebhook)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	go s.pruneLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type pruner interface {
	Prune(idle time.Duration) int
}

// pruneLoop drops idle rate-limit buckets so the map does not grow without
// bound.
func (s *Server) pruneLoop(ctx context.Context) {
	p, ok := s.deps.Limiter.(pruner)
	if !ok || s.opts.PruneInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.opts.PruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.Prune(bucketIdleAfter); n > 0 {
				s.logger.Debug().Int("removed", n).Msg("pruned idle rate-limit buckets")
			}
		}
	}
}

type admitAll struct{}

func (admitAll) Acquire(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}
