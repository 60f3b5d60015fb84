package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
	"github.com/jdeweedata/circletel-sub016/internal/httpserver/deps"
	"github.com/jdeweedata/circletel-sub016/internal/logger"
)

// Resolve answers a coverage query from the query string:
// GET /resolve?lat=-26.2&lon=28.04&services=fibre,5g&providers=fibreco&signal=true
func Resolve(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseQuery(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		result, err := d.Orchestrator.Resolve(r.Context(), q)
		if err != nil {
			d.Logger.Warn("coverage resolution failed",
				logger.Float64("lat", q.Latitude),
				logger.Float64("lon", q.Longitude),
				logger.Error(err))
			writeResolveError(w, err)
			return
		}

		d.Logger.Info("coverage query resolved",
			logger.String("request_id", result.Metadata.RequestID),
			logger.Bool("from_cache", result.Metadata.FromCache),
			logger.Bool("last_resort", result.Metadata.LastResort),
			logger.Int("providers", len(result.Providers)))
		writeJSON(w, http.StatusOK, result)
	}
}

func parseQuery(r *http.Request) (*domain.CoverageQuery, error) {
	params := r.URL.Query()

	lat, err := strconv.ParseFloat(params.Get("lat"), 64)
	if err != nil {
		return nil, &domain.InvalidQueryError{Reason: "lat must be a number"}
	}
	lon, err := strconv.ParseFloat(params.Get("lon"), 64)
	if err != nil {
		return nil, &domain.InvalidQueryError{Reason: "lon must be a number"}
	}

	q := &domain.CoverageQuery{
		Latitude:  lat,
		Longitude: lon,
		Address:   strings.TrimSpace(params.Get("address")),
	}
	if services := strings.TrimSpace(params.Get("services")); services != "" {
		q.ServiceTypes = splitCSV(services)
	}
	if providers := strings.TrimSpace(params.Get("providers")); providers != "" {
		q.Providers = splitCSV(providers)
	}
	if signal := params.Get("signal"); signal != "" {
		b, err := strconv.ParseBool(signal)
		if err != nil {
			return nil, &domain.InvalidQueryError{Reason: "signal must be a boolean"}
		}
		q.IncludeSignal = b
	}
	return q, nil
}

func splitCSV(s string) []string {
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
