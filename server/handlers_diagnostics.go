package server

import (
	"net/http"

	"github.com/jrsteele09/go-content-admin/diagnostics"
	"github.com/jrsteele09/go-content-admin/metrics"
)

// DiagnosticsHandler runs every connectivity check; any check that is not ok makes it a 503
func (s *Server) DiagnosticsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := s.deps.Diagnostics.Run(r.Context())
		for _, result := range report.Results {
			metrics.RecordCheck(result.Name, result.Status == diagnostics.StatusOK)
		}

		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}
