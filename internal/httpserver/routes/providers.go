package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/jdeweedata/circletel-sub016/internal/httpserver/deps"
	"github.com/jdeweedata/circletel-sub016/internal/httpserver/handlers"
	"github.com/jdeweedata/circletel-sub016/internal/httpserver/mw"
)

func init() { Register(registerProviders) }

func registerProviders(r chi.Router, d deps.Deps) {
	sub := r.With(
		mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
		mw.EnforceHost(d.AllowedHosts, d.Logger),
	)
	sub.Get("/providers/health", handlers.ProvidersHealth(d))
	sub.Post("/providers/{id}/test", handlers.TestProvider(d))
	sub.Post("/providers/{id}/session/refresh", handlers.RefreshSession(d))
}
