package handlers

import (
	"net/http"

	"github.com/jdeweedata/circletel-sub016/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready     bool `json:"ready"`
	Providers int  `json:"providers"`
}

// Readyz reports ready once the provider registry has loaded. Serving
// queries before that would answer every query with NoCoverageFound.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready := d.Ready == nil || d.Ready()
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, readyzResponse{
			Ready:     ready,
			Providers: d.Registry.Count(),
		})
	}
}
