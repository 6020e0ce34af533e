// Package server is the HTTP side of the content admin console.
package server

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/jrsteele09/go-content-admin/auth"
	"github.com/jrsteele09/go-content-admin/diagnostics"
	"github.com/jrsteele09/go-content-admin/gateway"
	"github.com/jrsteele09/go-content-admin/internal/config"
	"github.com/jrsteele09/go-content-admin/preferences"
	"github.com/jrsteele09/go-content-admin/resource"
	"github.com/jrsteele09/go-content-admin/server/consoles"
	"github.com/jrsteele09/go-content-admin/upload"
	"github.com/rs/zerolog/log"
)

// Deps are the backends the console is wired to
type Deps struct {
	Auth        gateway.Auth
	Tables      gateway.Tables
	Storage     gateway.Storage
	Preferences preferences.Store
	Diagnostics *diagnostics.Runner
	Catalog     resource.Catalog
	AuthOptions []auth.Option // extra options for every console's Auth Context
}

type Server struct {
	env         string // Environment (e.g., "DEV", "PROD")
	mux         *http.ServeMux
	routes      []string
	config      config.Config
	deps        Deps
	consoles    *consoles.Registry
	signInLimit *RateLimiter

	trustedProxies []netip.Prefix
}

func New(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Auth == nil || deps.Tables == nil || deps.Storage == nil {
		return nil, fmt.Errorf("[Server New] auth, tables and storage gateways are required")
	}
	if deps.Catalog == nil {
		deps.Catalog = resource.DefaultCatalog()
	}
	if err := deps.Catalog.Check(); err != nil {
		return nil, fmt.Errorf("[Server New] invalid catalog: %w", err)
	}
	if deps.Preferences == nil {
		deps.Preferences = preferences.NewMemoryStore()
	}
	if deps.Diagnostics == nil {
		deps.Diagnostics = diagnostics.NewRunner(cfg.GetDiagnosticsTimeout())
	}

	s := &Server{
		env:    cfg.GetEnv(),
		mux:    http.NewServeMux(),
		config: cfg,
		deps:   deps,
	}
	s.consoles = consoles.NewRegistry(s.newConsole)
	if cfg.GetEnableRateLimiting() {
		s.signInLimit = NewRateLimiter(cfg.GetSignInRatePerMinute())
		s.trustedProxies = cfg.GetTrustedProxies()
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) newConsole(id string) *consoles.Console {
	opts := append([]auth.Option{auth.WithMaxAttempts(s.config.GetSignInAttempts())}, s.deps.AuthOptions...)
	uploader := upload.NewUploader(s.deps.Storage,
		upload.WithMaxBytes(upload.KindImage, s.config.GetImageMaxBytes()),
		upload.WithMaxBytes(upload.KindFile, s.config.GetFileMaxBytes()),
	)
	return consoles.New(id, auth.NewContext(s.deps.Auth, opts...), s.deps.Tables, uploader, s.deps.Catalog)
}

// Consoles exposes the registry so idle consoles can be swept
func (s *Server) Consoles() *consoles.Registry {
	return s.consoles
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
