// Package server exposes the provisioning operations over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-michi/michi"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/time/rate"

	"github.com/mscno/provisioner/pkg/metrics"
	"github.com/mscno/provisioner/pkg/provision"
	"github.com/mscno/provisioner/server/middleware"
	"github.com/mscno/provisioner/server/stores"
)

const (
	maxHeaderBytes    = 1 << 20
	readTimeout       = 30 * time.Second
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 5 * time.Minute
	defaultRateLimit  = 10
	defaultRateBurst  = 20
)

// Provisioner is the orchestration surface served over HTTP.
type Provisioner interface {
	CreateRepositories(ctx context.Context, req provision.CreateReposRequest) (*provision.CreateReposReport, error)
	CreateRepository(ctx context.Context, req provision.CreateRepoRequest) (*provision.CreateRepoResult, error)
	DeleteRepositories(ctx context.Context, req provision.DeleteReposRequest) (*provision.DeleteReport, error)
	DeleteRepository(ctx context.Context, req provision.DeleteRepoRequest) (*provision.DeleteResult, error)
	ReconcileRuleset(ctx context.Context, req provision.RulesetRequest) (*provision.RulesetResult, error)
	AddMembers(ctx context.Context, req provision.MembersRequest) (*provision.MembersReport, error)
	RemoveMembers(ctx context.Context, req provision.MembersRequest) (*provision.MembersReport, error)
	UpdatePermissions(ctx context.Context, req provision.PermissionRequest) (*provision.PermissionReport, error)
}

var _ Provisioner = (*provision.Service)(nil)

// Options tune the HTTP surface. Zero values select defaults.
type Options struct {
	APIToken       string
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Metrics        *metrics.Metrics
	Version        string
}

// Server serves the provisioning API.
type Server struct {
	Provisioner Provisioner
	Journal     stores.Journal
	Logger      *slog.Logger

	HTTP   *http.Server
	Router *michi.Router

	opts        Options
	limiter     *middleware.RateLimiter
	middleware  []func(http.Handler) http.Handler
	routesAdded bool
}

// New builds a server with the full middleware chain and all routes registered.
func New(p Provisioner, journal stores.Journal, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if journal == nil {
		journal = stores.NewMemoryJournal()
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = defaultRateBurst
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = readTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = writeTimeout
	}

	s := &Server{
		Provisioner: p,
		Journal:     journal,
		Logger:      logger,
		Router:      michi.NewRouter(),
		opts:        opts,
	}
	s.HTTP = &http.Server{
		Handler:           h2c.NewHandler(s.Router, &http2.Server{}),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	unlimited := middleware.SkipPaths("/", "/healthz", "/metrics")
	s.limiter = middleware.NewRateLimiter(logger, middleware.IPAddressKeyFunc,
		rate.Limit(opts.RateLimit), opts.RateBurst, middleware.WithSkipper(unlimited))

	var observer middleware.RequestObserver
	if opts.Metrics != nil {
		observer = opts.Metrics
	}
	s.Use(
		middleware.WithRecovery(logger),
		middleware.WithRequestID,
		middleware.WithLogger(logger, observer),
		middleware.WithCORS(logger, opts.AllowedOrigins),
		s.limiter.Limit,
		middleware.WithAPIToken(opts.APIToken, logger, unlimited),
	)
	s.routes()
	return s
}

// Use adds middleware to the server
func (s *Server) Use(mw ...func(http.Handler) http.Handler) {
	if s.routesAdded {
		panic("cannot add middleware after routes are registered")
	}
	s.middleware = append(s.middleware, mw...)
	s.rebuildHandlerChain()
}

func (s *Server) rebuildHandlerChain() {
	var handler http.Handler = h2c.NewHandler(s.Router, &http2.Server{})
	s.HTTP.Handler = applyMiddleware(handler, s.middleware...)
}

// Handle registers handler for a method-qualified pattern such as "GET /healthz".
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.routesAdded = true
	s.Router.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.SetRoute(r.Context(), pattern)
		handler.ServeHTTP(w, r)
	}))
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.HTTP.Handler.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.Logger.Info("listening", "addr", ln.Addr().String())
	err := s.HTTP.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Debug("shutting down server")
	s.limiter.Close()
	if err := s.HTTP.Shutdown(ctx); err != nil {
		s.Logger.Error("error shutting down server", "error", err)
		return err
	}
	return nil
}

func applyMiddleware(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	// Apply middleware in reverse order so the first middleware in the slice
	// is the outermost one (first to process the request)
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
