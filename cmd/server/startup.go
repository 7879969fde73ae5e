package main

import (
	"go.uber.org/zap"

	"github.com/ichi0g0y/legacy-code-converter/internal/localdb"
	"github.com/ichi0g0y/legacy-code-converter/internal/settings"
	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
)

// migrateStoredSettings canonicalizes settings written by older builds or by hand.
func migrateStoredSettings() {
	db := localdb.GetDB()
	if db == nil {
		return
	}
	changed, err := settings.NewSettingsManager(db).NormalizeStored()
	if err != nil {
		logger.Warn("Failed to migrate stored settings", zap.Error(err))
		return
	}
	if changed > 0 {
		logger.Info("Stored settings migrated", zap.Int("changed", changed))
	}
}

// logUsageSummary reports accumulated provider usage so operators see spend at boot.
func logUsageSummary() {
	rows, err := localdb.GetProviderUsage()
	if err != nil {
		logger.Warn("Failed to read provider usage", zap.Error(err))
		return
	}
	for _, row := range rows {
		logger.Info("Provider usage",
			zap.String("provider", row.Provider),
			zap.Int("requests", row.Requests),
			zap.Int("input_tokens", row.InputTokens),
			zap.Int("output_tokens", row.OutputTokens),
			zap.Float64("cost_usd", row.CostUSD))
	}
}
