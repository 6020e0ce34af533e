package server

import (
	"net/http"

	"github.com/jrsteele09/go-content-admin/metrics"
)

func (s *Server) initRoutes() {
	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.ConsoleMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.ConsoleMiddleware(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.ConsoleMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteChangePassword, ChainMiddleware(s.ChangePasswordHandler(), s.ConsoleMiddleware(s.RequireConsoleAuth)...))

	s.RegisterRouteHandler("GET "+RouteSession, ChainMiddleware(s.SessionHandler(), s.ConsoleMiddleware()...))

	// Resource tables (require an authenticated console)
	s.RegisterRouteHandler("GET "+RouteTables, ChainMiddleware(s.CatalogHandler(), s.ConsoleMiddleware(s.RequireConsoleAuth)...))
	s.RegisterRouteHandler("GET "+RouteTable, ChainMiddleware(s.TableHandler(), s.ConsoleMiddleware(s.RequireConsoleAuth)...))
	s.RegisterRouteHandler("GET "+RouteRecord, ChainMiddleware(s.RecordHandler(), s.ConsoleMiddleware(s.RequireConsoleAuth)...))
	s.RegisterRouteHandler("POST "+RouteCreateModal, ChainMiddleware(s.OpenCreateHandler(), s.ConsoleMiddleware(s.RequireConsoleAuth)...))
	s.RegisterRouteHandler("POST "+RouteEditModal, ChainMiddleware(s.OpenEditHandler(), s.ConsoleMiddleware(s.RequireConsoleAuth)...))
	s.RegisterRouteHandler("POST "+RouteCloseModal, ChainMiddleware(s.CloseModalHandler(), s.ConsoleMiddleware(s.RequireConsoleAuth)...))
	s.RegisterRouteHandler("POST "+RouteSubmitModal, ChainMiddleware(s.SubmitHandler(), s.ConsoleMiddleware(s.RequireConsoleAuth)...))
	s.RegisterRouteHandler("DELETE "+RouteRecord, ChainMiddleware(s.DeleteHandler(), s.ConsoleMiddleware(s.RequireConsoleAuth)...))
	s.RegisterRouteHandler("POST "+RouteUpload, ChainMiddleware(s.UploadHandler(), s.ConsoleMiddleware(s.RequireConsoleAuth)...))

	// Preferences and diagnostics
	s.RegisterRouteHandler("GET "+RouteDarkMode, ChainMiddleware(s.GetDarkModeHandler(), s.ConsoleMiddleware()...))
	s.RegisterRouteHandler("PUT "+RouteDarkMode, ChainMiddleware(s.SetDarkModeHandler(), s.ConsoleMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteDiagnostics, ChainMiddleware(s.DiagnosticsHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteMetrics, metrics.Handler())

	s.RegisterRouteHandler("/", ChainMiddleware(s.NotFoundHandler(), s.APIMiddleware()...))
}

// NotFoundHandler answers every unknown route
func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "404 - Page Not Found")
	}
}
