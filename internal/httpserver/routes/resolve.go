package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/jdeweedata/circletel-sub016/internal/httpserver/deps"
	"github.com/jdeweedata/circletel-sub016/internal/httpserver/handlers"
	"github.com/jdeweedata/circletel-sub016/internal/httpserver/mw"
)

func init() { Register(registerResolve) }

func registerResolve(r chi.Router, d deps.Deps) {
	r.With(mw.EnforceHost(d.AllowedHosts, d.Logger)).Get("/resolve", handlers.Resolve(d))
}
