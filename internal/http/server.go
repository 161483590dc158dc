package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"txdash/internal/cache"
	"txdash/internal/core"
	"txdash/internal/log"
	"txdash/internal/middleware/ratelimit"
	"txdash/internal/middleware/security"
	"txdash/internal/middleware/trace"
	appweb "txdash/web"
)

// DatasetSource is the read side of the datastore used by the handlers.
type DatasetSource interface {
	Snapshot() (core.Dataset, uint64)
	Ready() bool
	LastError() error
}

// Options configures NewServer. Zero values fall back to the defaults
// noted on each field.
type Options struct {
	Addr   string
	Store  DatasetSource
	Logger *log.Logger

	AllowedOrigins     []string // empty keeps /api same-origin
	TrustedProxies     []string
	RateLimitPerMinute int           // 300
	CacheSize          int           // 200
	CacheTTL           time.Duration // 5m
	SortDates          bool
}

type Server struct {
	http.Server
	store     DatasetSource
	templates *template.Template
	logger    *log.Logger
	sortDates bool

	// Results are keyed by dataset version, so a replaced dataset never
	// serves stale rows even before PurgeCaches runs.
	filterCache  *cache.LRUCache[filterKey, []core.Transaction]
	chartCache   *cache.LRUCache[chartKey, core.ChartSeries]
	cacheManager *cache.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires routes and middleware.
func NewServer(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 200
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	detector, err := security.NewDetector(logger, opts.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("configuring trusted proxies: %w", err)
	}

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:        opts.Store,
		templates:    t,
		logger:       logger,
		sortDates:    opts.SortDates,
		filterCache:  cache.NewLRUCache[filterKey, []core.Transaction](opts.CacheSize, opts.CacheTTL),
		chartCache:   cache.NewLRUCache[chartKey, core.ChartSeries](opts.CacheSize, opts.CacheTTL),
		cacheManager: cache.NewManager(opts.Logger.WithComponent(log.ComponentCache).Logger),
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:     detector,
	}
	s.tracer = trace.NewMiddleware(logger, detector.ExtractClientIP)

	s.cacheManager.Register(s.filterCache)
	s.cacheManager.Register(s.chartCache)
	s.cacheManager.StartCleanup(opts.CacheTTL)

	s.Handler = s.routes(opts.AllowedOrigins)
	return s, nil
}

func (s *Server) routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(s.tracer.Handler)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(s.detector.Middleware)
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, _ *http.Request) {
			TooManyRequestsError().Write(w)
		}))

		if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
			static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
			r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
		} else {
			s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
		}

		r.Get("/", s.handleIndex)
		r.Get("/ui/transactions", s.handleTransactions)
		r.Get("/ui/chart", s.handleChart)

		r.Route("/api", func(r chi.Router) {
			if len(allowedOrigins) > 0 {
				r.Use(cors.Handler(cors.Options{
					AllowedOrigins: allowedOrigins,
					AllowedMethods: []string{"GET", "OPTIONS"},
					AllowedHeaders: []string{"Accept", "Content-Type"},
					MaxAge:         300,
				}))
			}
			r.Get("/data", s.handleData)
			r.Get("/chart", s.handleChartData)
		})
	})

	return r
}

// PurgeCaches drops every cached filter and chart result. It is hooked to
// dataset replacement.
func (s *Server) PurgeCaches() int {
	return s.cacheManager.PurgeAll()
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
