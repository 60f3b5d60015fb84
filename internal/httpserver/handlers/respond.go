package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
)

type errorResponse struct {
	Error     string          `json:"error"`
	Providers []providerCause `json:"providers,omitempty"`
}

type providerCause struct {
	ProviderID string `json:"provider_id"`
	Kind       string `json:"kind"`
	Detail     string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeResolveError maps resolution errors to HTTP statuses. Per-provider
// failure detail is preserved in the response body.
func writeResolveError(w http.ResponseWriter, err error) {
	var invalid *domain.InvalidQueryError
	if errors.As(err, &invalid) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: invalid.Error()})
		return
	}

	var cfg *domain.ConfigurationError
	if errors.As(err, &cfg) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: cfg.Error()})
		return
	}

	if errors.Is(err, domain.ErrNoCoverageFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}

	var all *domain.AllProvidersFailedError
	if errors.As(err, &all) {
		causes := make([]providerCause, 0, len(all.Causes))
		for _, c := range all.Causes {
			causes = append(causes, providerCause{
				ProviderID: c.ProviderID,
				Kind:       string(c.Kind),
				Detail:     c.Error(),
			})
		}
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:     "all providers failed",
			Providers: causes,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}
