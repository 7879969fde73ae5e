package webserver

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ichi0g0y/legacy-code-converter/internal/localdb"
	"github.com/ichi0g0y/legacy-code-converter/internal/settings"
	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
)

func handleHistory(w http.ResponseWriter, r *http.Request) {
	db := localdb.GetDB()
	if db == nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "database not initialized")
		return
	}

	switch r.Method {
	case http.MethodGet:
		limit := settings.NewSettingsManager(db).GetInt(settings.KeyHistoryLimit)
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 || parsed > 500 {
				writeError(w, http.StatusBadRequest, kindInvalidRequest, "limit must be an integer between 1 and 500")
				return
			}
			limit = parsed
		}

		rows, err := localdb.GetRecentConversions(limit)
		if err != nil {
			logger.Error("Failed to load history", zap.Error(err))
			http.Error(w, "Failed to load history", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{
			"conversions": rows,
			"count":       len(rows),
		})

	case http.MethodDelete:
		removed, err := localdb.ClearConversions()
		if err != nil {
			http.Error(w, "Failed to clear history", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{
			"success": true,
			"removed": removed,
		})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
