package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/jdeweedata/circletel-sub016/internal/httpserver/deps"
	"github.com/jdeweedata/circletel-sub016/internal/httpserver/handlers"
	"github.com/jdeweedata/circletel-sub016/internal/httpserver/mw"
)

func init() { Register(registerOps) }

func registerOps(r chi.Router, d deps.Deps) {
	restricted := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
	restricted.Get("/healthz", handlers.Healthz(d))
	restricted.Get("/readyz", handlers.Readyz(d))
	restricted.Get("/metrics", d.Metrics.ServeHTTP)

	admin := restricted.With(mw.EnforceHost(d.AllowedHosts, d.Logger))
	admin.Post("/reload", handlers.Reload(d))
	admin.Get("/logs/recent", handlers.RecentLogs(d))
}
