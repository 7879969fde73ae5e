package webserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ichi0g0y/legacy-code-converter/internal/localdb"
	"github.com/ichi0g0y/legacy-code-converter/internal/settings"
	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
)

func handleSettings(w http.ResponseWriter, r *http.Request) {
	db := localdb.GetDB()
	if db == nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "database not initialized")
		return
	}
	manager := settings.NewSettingsManager(db)

	switch r.Method {
	case http.MethodGet:
		all, err := manager.GetAllSettings()
		if err != nil {
			logger.Error("Failed to load settings", zap.Error(err))
			http.Error(w, "Failed to load settings", http.StatusInternalServerError)
			return
		}
		writeJSON(w, all)

	case http.MethodPut:
		var values map[string]string
		if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
			writeError(w, http.StatusBadRequest, kindInvalidRequest, "invalid request body")
			return
		}
		if err := manager.SetSettings(values); err != nil {
			writeError(w, http.StatusBadRequest, kindInvalidRequest, err.Error())
			return
		}
		all, err := manager.GetAllSettings()
		if err != nil {
			http.Error(w, "Failed to load settings", http.StatusInternalServerError)
			return
		}
		BroadcastWSMessage("settings_updated", all)
		writeJSON(w, all)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
