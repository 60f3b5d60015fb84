package handlers

import (
	"net/http"
	"strconv"

	"github.com/jdeweedata/circletel-sub016/internal/httpserver/deps"
	"github.com/jdeweedata/circletel-sub016/internal/logger"
)

// RecentLogs returns the most recent provider call records:
// GET /logs/recent?limit=50
func RecentLogs(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
				return
			}
			limit = n
		}

		records, err := d.Store.RecentCallLogs(r.Context(), limit)
		if err != nil {
			d.Logger.Warn("failed to read call log", logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read call log"})
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}
