package handlers

import (
	"net/http"

	"github.com/jdeweedata/circletel-sub016/internal/httpserver/deps"
	"github.com/jdeweedata/circletel-sub016/internal/logger"
)

type reloadResponse struct {
	Providers bool `json:"providers_triggered"`
	Datasets  bool `json:"datasets_triggered"`
	Sessions  bool `json:"sessions_triggered"`
}

// Reload triggers a manual reload of the provider file, a rescan of
// static datasets, and a session refresh sweep. A trigger already in
// flight is reported, not queued.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := reloadResponse{}

		select {
		case d.ProviderReloadTrigger <- struct{}{}:
			resp.Providers = true
			d.Logger.Info("manual provider reload triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
		default:
			d.Logger.Warn("provider reload already in progress",
				logger.String("remote_ip", r.RemoteAddr))
		}

		select {
		case d.DatasetReloadTrigger <- struct{}{}:
			resp.Datasets = true
			d.Logger.Info("manual dataset reload triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
		default:
			d.Logger.Warn("dataset reload already in progress",
				logger.String("remote_ip", r.RemoteAddr))
		}

		select {
		case d.SessionRefreshTrigger <- struct{}{}:
			resp.Sessions = true
		default:
			d.Logger.Warn("session refresh sweep already in progress",
				logger.String("remote_ip", r.RemoteAddr))
		}

		if resp.Providers || resp.Datasets || resp.Sessions {
			writeJSON(w, http.StatusAccepted, resp)
			return
		}
		writeJSON(w, http.StatusTooManyRequests, resp)
	}
}
