package webserver

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ichi0g0y/legacy-code-converter/internal/localdb"
	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
)

type usageTotal struct {
	Requests     int     `json:"requests"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

type usageResponse struct {
	Providers []localdb.ProviderUsage `json:"providers"`
	Total     usageTotal              `json:"total"`
}

func handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if localdb.GetDB() == nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "database not initialized")
		return
	}

	rows, err := localdb.GetProviderUsage()
	if err != nil {
		logger.Error("Failed to load usage", zap.Error(err))
		http.Error(w, "Failed to load usage", http.StatusInternalServerError)
		return
	}

	resp := usageResponse{Providers: rows}
	for _, u := range rows {
		resp.Total.Requests += u.Requests
		resp.Total.InputTokens += u.InputTokens
		resp.Total.OutputTokens += u.OutputTokens
		resp.Total.CostUSD += u.CostUSD
	}
	resp.Total.TotalTokens = resp.Total.InputTokens + resp.Total.OutputTokens

	writeJSON(w, resp)
}

func handleUsageReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if localdb.GetDB() == nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "database not initialized")
		return
	}
	if err := localdb.ResetProviderUsage(); err != nil {
		http.Error(w, "Failed to reset usage", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"ok": true})
}
