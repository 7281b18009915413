package handlers

import (
	"net/http"

	"github.com/pysugar/digital-twin/internal/version"
)

// HealthHandler reports liveness for probes and the frontend connection
// banner.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version.Version,
		})
	}
}
