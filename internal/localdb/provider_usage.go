package localdb

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
)

// ProviderUsage is the running token total for one provider.
type ProviderUsage struct {
	Provider     string  `json:"provider"`
	Requests     int     `json:"requests"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	UpdatedAt    string  `json:"updated_at"`
}

// SetupProviderUsageTable creates the provider_usage table.
func SetupProviderUsageTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS provider_usage (
		provider TEXT PRIMARY KEY,
		requests INTEGER NOT NULL DEFAULT 0,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		cost_usd REAL NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		logger.Error("Failed to create provider_usage table", zap.Error(err))
		return fmt.Errorf("failed to create provider_usage table: %w", err)
	}
	return nil
}

// AddProviderUsage adds one request's tokens and cost to the provider total.
func AddProviderUsage(provider string, inputTokens, outputTokens int, costUSD float64) error {
	db := GetDB()
	if db == nil {
		return errNotInitialized
	}
	_, err := db.Exec(`INSERT INTO provider_usage (provider, requests, input_tokens, output_tokens, cost_usd)
		VALUES (?, 1, ?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET
			requests = requests + 1,
			input_tokens = input_tokens + excluded.input_tokens,
			output_tokens = output_tokens + excluded.output_tokens,
			cost_usd = cost_usd + excluded.cost_usd,
			updated_at = CURRENT_TIMESTAMP`,
		provider, inputTokens, outputTokens, costUSD)
	if err != nil {
		logger.Error("Failed to record provider usage", zap.Error(err), zap.String("provider", provider))
		return fmt.Errorf("failed to record provider usage: %w", err)
	}
	return nil
}

// GetProviderUsage returns every provider with recorded usage, ordered by name.
func GetProviderUsage() ([]ProviderUsage, error) {
	db := GetDB()
	if db == nil {
		return nil, errNotInitialized
	}
	rows, err := db.Query(`SELECT provider, requests, input_tokens, output_tokens, cost_usd, updated_at
		FROM provider_usage ORDER BY provider`)
	if err != nil {
		return nil, fmt.Errorf("failed to query provider usage: %w", err)
	}
	defer rows.Close()

	result := []ProviderUsage{}
	for rows.Next() {
		var u ProviderUsage
		if err := rows.Scan(&u.Provider, &u.Requests, &u.InputTokens, &u.OutputTokens, &u.CostUSD, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan provider usage: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// ResetProviderUsage zeroes all totals.
func ResetProviderUsage() error {
	db := GetDB()
	if db == nil {
		return errNotInitialized
	}
	if _, err := db.Exec(`DELETE FROM provider_usage`); err != nil {
		logger.Error("Failed to reset provider usage", zap.Error(err))
		return fmt.Errorf("failed to reset provider usage: %w", err)
	}
	logger.Info("Provider usage reset")
	return nil
}
