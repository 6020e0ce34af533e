package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes
	RouteLogin          = "/login"
	RouteAuthLogin      = "/auth/login"
	RouteAuthLogout     = "/auth/logout"
	RouteChangePassword = "/auth/change-password"

	// Console API Routes
	RouteSession     = "/api/session"
	RouteTables      = "/api/tables"
	RouteTable       = "/api/tables/{table}"
	RouteRecord      = "/api/tables/{table}/{id}"
	RouteCreateModal = "/api/tables/{table}/new"
	RouteEditModal   = "/api/tables/{table}/{id}/edit"
	RouteCloseModal  = "/api/tables/{table}/close"
	RouteSubmitModal = "/api/tables/{table}/submit"
	RouteUpload      = "/api/uploads/{kind}"
	RouteDarkMode    = "/api/preferences/dark-mode"
	RouteDiagnostics = "/api/diagnostics"

	// Operational Routes
	RouteMetrics = "/metrics"
)
