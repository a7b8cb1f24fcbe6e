// Package server exposes layout computation over HTTP.
//
// Routes:
//
//	POST /v1/layout                   compute the layout of the graph in the body
//	GET  /v1/layouts/{id}             fetch an archived layout
//	GET  /v1/layouts/{id}/render      draw an archived layout (?format=svg|dot)
//	GET  /healthz                     engine state and build info
//
// Responses for identical graphs are served from the cache when one is
// configured; successful layouts are archived when a store is configured.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/elkbridge/pkg/cache"
	"github.com/matzehuels/elkbridge/pkg/elk"
	"github.com/matzehuels/elkbridge/pkg/engine"
	"github.com/matzehuels/elkbridge/pkg/observability"
	"github.com/matzehuels/elkbridge/pkg/store"
)

// DefaultMaxBodyBytes bounds request bodies when Options.MaxBodyBytes is 0.
const DefaultMaxBodyBytes = 8 << 20

// Computer computes layouts. *layout.Client implements it.
type Computer interface {
	Compute(ctx context.Context, g *elk.Graph) (elk.Layout, error)
	State() engine.State
	EngineVersion() string
}

// Options configures a Server. Cache and Store are optional.
type Options struct {
	Logger       *log.Logger
	Cache        cache.Cache
	Keyer        cache.Keyer
	CacheTTL     time.Duration
	Store        store.Store
	MaxBodyBytes int64
}

// Server serves the HTTP API.
type Server struct {
	computer Computer
	logger   *log.Logger
	cache    cache.Cache
	keyer    cache.Keyer
	ttl      time.Duration
	store    store.Store
	maxBody  int64
	hooks    observability.CacheHooks
	started  time.Time
}

// New returns a server backed by c.
func New(c Computer, opts Options) *Server {
	s := &Server{
		computer: c,
		logger:   opts.Logger,
		cache:    opts.Cache,
		keyer:    opts.Keyer,
		ttl:      opts.CacheTTL,
		store:    opts.Store,
		maxBody:  opts.MaxBodyBytes,
		hooks:    observability.Cache(),
		started:  time.Now(),
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.cache == nil {
		s.cache = cache.NewNullCache()
	}
	if s.keyer == nil {
		s.keyer = cache.NewDefaultKeyer()
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
		r.Get("/layouts/{id}", s.handleGetLayout)
		r.Get("/layouts/{id}/render", s.handleRender)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests for up to 10 seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// Requests outlive ctx so Shutdown can drain them.
	base := context.WithoutCancel(ctx)
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
