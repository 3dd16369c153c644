package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/ocean-news/internal/metrics"
	"github.com/JakeFAU/ocean-news/internal/news"
	"github.com/JakeFAU/ocean-news/internal/orchestrator"
)

// NewsService is satisfied by *orchestrator.Orchestrator.
type NewsService interface {
	Get(ctx context.Context) news.Result
	Status(ctx context.Context) (orchestrator.Status, error)
}

// Pinger reports shared store reachability for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the HTTP surface.
type Options struct {
	RequestTimeout time.Duration
	ArticleCount   int
}

// Server wires HTTP handlers to the news pipeline.
type Server struct {
	router chi.Router
	news   NewsService
	store  Pinger
	opts   Options
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes. store may be nil
// when no shared store is configured.
func NewServer(svc NewsService, store Pinger, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.ArticleCount <= 0 {
		opts.ArticleCount = 9
	}
	s := &Server{news: svc, store: store, opts: opts, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	// The news route enforces its own deadline in fetchNews so that a slow
	// refresh still answers 200 with the curated list.
	r.Get("/api/news", s.getNews)
	r.Get("/api/news/", s.getNews)

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(opts.RequestTimeout))
		r.Get("/healthz", s.healthz)
		r.Get("/readyz", s.readyz)
		r.Handle("/metrics", metrics.Handler())
		r.Get("/api/news/status", s.getStatus)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz stays 200 when the shared store is down: the in-process fallback is
// a valid serving mode.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "store": "local"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("readiness: shared store unreachable", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]string{"status": "degraded", "store": "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "store": "shared"})
}

type newsResponse struct {
	Success bool        `json:"success"`
	Data    []news.Item `json:"data"`
	Count   int         `json:"count"`
	Source  news.Source `json:"source"`
	Cached  bool        `json:"cached"`
	Note    string      `json:"note,omitempty"`
}

func (s *Server) getNews(w http.ResponseWriter, r *http.Request) {
	res := s.fetchNews(r.Context())
	if res.Articles == nil {
		res.Articles = []news.Item{}
	}
	writeJSON(w, http.StatusOK, newsResponse{
		Success: true,
		Data:    res.Articles,
		Count:   len(res.Articles),
		Source:  res.Source,
		Cached:  res.Cached,
		Note:    res.Note,
	})
}

// Notes for results produced by the HTTP layer itself.
const (
	notePipelineError = "news pipeline error; showing curated ocean stories"
	noteTimedOut      = "news refresh is taking longer than expected; showing curated ocean stories"
)

// fetchNews bounds the pipeline by the request timeout. On a deadline it
// answers with the curated list while the refresh keeps running for later
// callers.
func (s *Server) fetchNews(ctx context.Context) news.Result {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	done := make(chan news.Result, 1)
	go func() { done <- s.getGuarded(ctx) }()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		s.logger.Warn("news pipeline exceeded request timeout; serving fallback",
			zap.Duration("timeout", s.opts.RequestTimeout),
			zap.String("request_id", RequestID(ctx)),
		)
		return s.fallback(noteTimedOut)
	}
}

// getGuarded shields the route from panics anywhere in the pipeline.
func (s *Server) getGuarded(ctx context.Context) (res news.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("news pipeline panicked; serving fallback",
				zap.Any("panic", rec),
				zap.String("request_id", RequestID(ctx)),
			)
			res = s.fallback(notePipelineError)
		}
	}()
	return s.news.Get(ctx)
}

func (s *Server) fallback(note string) news.Result {
	metrics.ObserveRequest("fallback")
	return news.Result{
		Articles: news.FallbackN(s.opts.ArticleCount),
		Source:   news.SourceFallback,
		Note:     note,
	}
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.news.Status(r.Context())
	if err != nil {
		s.logger.Warn("status lookup failed", zap.Error(err), zap.String("request_id", RequestID(r.Context())))
		writeError(w, http.StatusServiceUnavailable, "status unavailable")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
