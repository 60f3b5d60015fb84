package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
	"github.com/jdeweedata/circletel-sub016/internal/health"
	"github.com/jdeweedata/circletel-sub016/internal/httpserver/deps"
	"github.com/jdeweedata/circletel-sub016/internal/logger"
)

type providerHealth struct {
	ProviderID string        `json:"provider_id"`
	Name       string        `json:"name"`
	Enabled    bool          `json:"enabled"`
	Kind       string        `json:"kind"`
	Priority   int           `json:"priority"`
	Health     health.Record `json:"health"`
}

// ProvidersHealth lists every registered provider with its derived health
// record.
func ProvidersHealth(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providers := d.Registry.All()
		out := make([]providerHealth, 0, len(providers))
		for _, p := range providers {
			out = append(out, providerHealth{
				ProviderID: p.ID,
				Name:       p.Name,
				Enabled:    p.Enabled,
				Kind:       string(p.Kind),
				Priority:   p.Priority,
				Health:     d.Tracker.Snapshot(p.ID),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// TestProvider probes one provider directly, bypassing the cache:
// POST /providers/{id}/test?lat=&lon=&services=
func TestProvider(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID := chi.URLParam(r, "id")

		q, err := parseQuery(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		res, err := d.Orchestrator.TestProvider(r.Context(), providerID, q)
		if err != nil {
			writeResolveError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type sessionRefreshResponse struct {
	ProviderID string    `json:"provider_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// RefreshSession forces a session ticket refresh for one ticket-auth
// provider: POST /providers/{id}/session/refresh
func RefreshSession(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID := chi.URLParam(r, "id")

		p, ok := d.Registry.Get(providerID)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown provider: " + providerID})
			return
		}
		if p.Kind != domain.KindRemote || p.Remote == nil || p.Remote.Auth != domain.AuthSession {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "provider does not use session ticket auth"})
			return
		}

		ticket, err := d.Sessions.Refresh(r.Context(), p)
		if err != nil {
			d.Logger.Warn("manual session refresh failed",
				logger.String("provider", providerID),
				logger.Error(err))
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, sessionRefreshResponse{
			ProviderID: providerID,
			ExpiresAt:  ticket.ExpiresAt,
		})
	}
}
