package localdb

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
)

// Conversion status values.
const (
	ConversionSucceeded = "succeeded"
	ConversionFailed    = "failed"
)

// ConversionRow is the metadata of one conversion attempt. The source code, the
// output and the credential are never stored.
type ConversionRow struct {
	ID           string `json:"id"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	FromLanguage string `json:"from_language"`
	ToLanguage   string `json:"to_language"`
	IsDocument   bool   `json:"is_document"`
	InputChars   int    `json:"input_chars"`
	OutputChars  int    `json:"output_chars"`
	Status       string `json:"status"`
	ErrorKind    string `json:"error_kind,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
	CreatedAt    int64  `json:"created_at"`
}

// SetupConversionsTable creates the conversions history table.
func SetupConversionsTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS conversions (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		from_language TEXT NOT NULL,
		to_language TEXT NOT NULL,
		is_document BOOLEAN NOT NULL DEFAULT false,
		input_chars INTEGER NOT NULL DEFAULT 0,
		output_chars INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error_kind TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		logger.Error("Failed to create conversions table", zap.Error(err))
		return fmt.Errorf("failed to create conversions table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_conversions_created_at ON conversions(created_at)`); err != nil {
		logger.Warn("Failed to create conversions index", zap.Error(err))
	}
	return nil
}

// AddConversion stores one history row.
func AddConversion(row ConversionRow) error {
	db := GetDB()
	if db == nil {
		return errNotInitialized
	}
	if row.CreatedAt == 0 {
		row.CreatedAt = time.Now().UnixMilli()
	}

	_, err := db.Exec(`INSERT INTO conversions
		(id, provider, model, from_language, to_language, is_document, input_chars, output_chars, status, error_kind, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.Provider, row.Model, row.FromLanguage, row.ToLanguage, row.IsDocument,
		row.InputChars, row.OutputChars, row.Status, row.ErrorKind, row.DurationMs, row.CreatedAt,
	)
	if err != nil {
		logger.Error("Failed to insert conversion", zap.Error(err), zap.String("id", row.ID))
		return fmt.Errorf("failed to insert conversion: %w", err)
	}
	return nil
}

// GetRecentConversions returns up to limit rows, newest first.
func GetRecentConversions(limit int) ([]ConversionRow, error) {
	db := GetDB()
	if db == nil {
		return nil, errNotInitialized
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Query(`SELECT id, provider, model, from_language, to_language, is_document,
		input_chars, output_chars, status, error_kind, duration_ms, created_at
		FROM conversions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		logger.Error("Failed to query conversions", zap.Error(err))
		return nil, fmt.Errorf("failed to query conversions: %w", err)
	}
	defer rows.Close()

	result := []ConversionRow{}
	for rows.Next() {
		var r ConversionRow
		if err := rows.Scan(&r.ID, &r.Provider, &r.Model, &r.FromLanguage, &r.ToLanguage, &r.IsDocument,
			&r.InputChars, &r.OutputChars, &r.Status, &r.ErrorKind, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ClearConversions deletes all history and returns the number of removed rows.
func ClearConversions() (int64, error) {
	db := GetDB()
	if db == nil {
		return 0, errNotInitialized
	}
	res, err := db.Exec(`DELETE FROM conversions`)
	if err != nil {
		logger.Error("Failed to clear conversions", zap.Error(err))
		return 0, fmt.Errorf("failed to clear conversions: %w", err)
	}
	n, _ := res.RowsAffected()
	logger.Info("Conversion history cleared", zap.Int64("rows", n))
	return n, nil
}
