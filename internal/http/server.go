package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"billtracker/internal/cache"
	"billtracker/internal/commands"
	"billtracker/internal/log"
	"billtracker/internal/middleware/ratelimit"
	"billtracker/internal/middleware/security"
	"billtracker/internal/middleware/trace"
	"billtracker/internal/state"
	"billtracker/internal/store"
	appweb "billtracker/web"
)

// Config tunes the HTTP server.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	// TrustedProxies are CIDRs, on top of loopback and private ranges, whose
	// forwarding headers name the client.
	TrustedProxies []string
	// BlockSuspicious answers scanner traffic with 400 instead of only
	// logging it.
	BlockSuspicious bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// Deps are the collaborators the handlers use.
type Deps struct {
	Backend  store.Backend
	State    *state.Store
	Views    *state.Views
	Registry *commands.Registry
	// Cache is stopped on shutdown when set.
	Cache  *cache.Manager
	Logger *log.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	http.Server
	templates    *template.Template
	backend      store.Backend
	state        *state.Store
	views        *state.Views
	registry     *commands.Registry
	cacheManager *cache.Manager
	logger       *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics *appMetrics
	now        func() time.Time
}

type appMetrics struct {
	uptime        time.Time
	actionsOK     atomic.Int64
	actionsFailed atomic.Int64
	pdfDownloads  atomic.Int64
	exports       atomic.Int64
	unauthorized  atomic.Int64
}

// NewServer wires the router. Template parse failures are logged and
// reported by /readyz; pages answer 500 until fixed.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Backend == nil || deps.State == nil || deps.Views == nil || deps.Registry == nil {
		return nil, errors.New("http server needs a backend, state, views and a command registry")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		backend:          deps.Backend,
		state:            deps.State,
		views:            deps.Views,
		registry:         deps.Registry,
		cacheManager:     deps.Cache,
		logger:           logger,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
		now:              time.Now,
	}
	for _, cidr := range cfg.TrustedProxies {
		if err := s.securityDetector.AddTrustedProxy(cidr); err != nil {
			s.rateLimiter.Stop()
			return nil, err
		}
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.WithComponent(log.ComponentTemplate).Error("Failed to parse templates",
			log.FieldError, err)
	} else {
		s.templates = tmpl
	}

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       orDuration(cfg.ReadTimeout, 90*time.Second),
		WriteTimeout:      orDuration(cfg.WriteTimeout, 120*time.Second),
		IdleTimeout:       orDuration(cfg.IdleTimeout, 120*time.Second),
	}
	return s, nil
}

func orDuration(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

func (s *Server) routes(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.securityDetector.Middleware(s.logger, cfg.BlockSuspicious))
	r.Use(middleware.Compress(5, "text/html", "text/css", "application/javascript", "application/json"))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	if static, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		r.With(security.StaticAssetMiddleware(3600)).
			Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	}

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit))
		r.Use(security.NoStore)

		r.Get("/login", s.handleLogin)
		r.Get("/", s.handleIndex)
		r.Get("/partials/bills", s.withState(s.billsPartial))
		r.Get("/partials/analytics", s.withState(s.analyticsPartial))
		r.Get("/partials/networks", s.withState(s.networksPartial))

		r.Post("/actions/{action}", s.handleAction)
		r.Post("/bills/{serialNo}/pdf", s.handleUploadPDF)
		r.Get("/pdf/*", s.handlePDF)
		r.Get("/export/xlsx", s.withState(s.exportXLSX))

		r.Route("/api", func(r chi.Router) {
			r.Get("/bills", s.withState(s.apiBills))
			r.Get("/analytics", s.withState(s.apiAnalytics))
			r.Get("/charts", s.withState(s.apiCharts))
			r.Get("/config", s.withState(s.apiConfig))
			r.Get("/locations", s.withState(s.apiLocations))
			r.Get("/filter-options", s.withState(s.apiFilterOptions))
		})
	})
	return r
}

// onRateLimit answers throttled requests in the caller's format.
func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	const msg = "Too many requests. Please slow down."
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	if isHTMX(r) {
		NewHTMXResponse().
			Status(http.StatusTooManyRequests).
			Notify(NewNotification(NotificationWarning, msg)).
			Write(w)
		return
	}
	writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": msg})
}

// Shutdown stops background work and drains connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	s.rateLimiter.Stop()
	if s.cacheManager != nil {
		s.cacheManager.Stop()
	}
	return s.Server.Shutdown(ctx)
}
