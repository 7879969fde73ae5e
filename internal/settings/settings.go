package settings

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ichi0g0y/legacy-code-converter/internal/provider"
	"github.com/ichi0g0y/legacy-code-converter/internal/samples"
	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
)

// Setting is a persisted UI preference. API keys are never settings.
type Setting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type SettingsManager struct {
	db *sql.DB
}

func NewSettingsManager(db *sql.DB) *SettingsManager {
	return &SettingsManager{db: db}
}

const (
	KeyDefaultProvider     = "DEFAULT_PROVIDER"
	KeyDefaultFromLanguage = "DEFAULT_FROM_LANGUAGE"
	KeyDefaultTargetStack  = "DEFAULT_TARGET_STACK"
	KeyHistoryLimit        = "HISTORY_LIMIT"
	KeyLoadSampleOnStart   = "LOAD_SAMPLE_ON_START"
)

var DefaultSettings = map[string]Setting{
	KeyDefaultProvider: {
		Key: KeyDefaultProvider, Value: string(provider.Demo),
		Description: "Provider preselected in the UI",
	},
	KeyDefaultFromLanguage: {
		Key: KeyDefaultFromLanguage, Value: samples.DefaultSourceLanguage,
		Description: "Source language preselected in the UI",
	},
	KeyDefaultTargetStack: {
		Key: KeyDefaultTargetStack, Value: samples.DefaultTargetStack,
		Description: "Target stack preselected in the UI",
	},
	KeyHistoryLimit: {
		Key: KeyHistoryLimit, Value: "50",
		Description: "Number of history rows returned by default",
	},
	KeyLoadSampleOnStart: {
		Key: KeyLoadSampleOnStart, Value: "true",
		Description: "Fill the editor with the Ember sample on first load",
	},
}

func (sm *SettingsManager) GetSetting(key string) (string, error) {
	var value string
	err := sm.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		if defaultSetting, exists := DefaultSettings[key]; exists {
			return defaultSetting.Value, nil
		}
		return "", fmt.Errorf("setting not found: %s", key)
	}
	return value, err
}

// GetInt reads key as an integer, falling back to the default on any error.
func (sm *SettingsManager) GetInt(key string) int {
	value, err := sm.GetSetting(key)
	if err == nil {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	parsed, _ := strconv.Atoi(DefaultSettings[key].Value)
	return parsed
}

func (sm *SettingsManager) SetSetting(key, value string) error {
	defaultSetting, exists := DefaultSettings[key]
	if !exists {
		return fmt.Errorf("unknown setting key: %s", key)
	}
	if err := ValidateSetting(key, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	_, err := sm.db.Exec(`
		INSERT INTO settings (key, value, description)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		key, value, defaultSetting.Description,
	)
	return err
}

// SetSettings validates every pair before writing any of them.
func (sm *SettingsManager) SetSettings(values map[string]string) error {
	for key, value := range values {
		if _, exists := DefaultSettings[key]; !exists {
			return fmt.Errorf("unknown setting key: %s", key)
		}
		if err := ValidateSetting(key, value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
	}
	for key, value := range values {
		if err := sm.SetSetting(key, value); err != nil {
			return err
		}
		logger.Info("Setting updated", zap.String("key", key), zap.String("value", value))
	}
	return nil
}

func (sm *SettingsManager) GetAllSettings() (map[string]Setting, error) {
	rows, err := sm.db.Query(`SELECT key, value, description, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]Setting)
	for rows.Next() {
		var s Setting
		var description sql.NullString
		if err := rows.Scan(&s.Key, &s.Value, &description, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Description = description.String
		settings[s.Key] = s
	}

	// Keys not yet written fall back to defaults.
	for key, defaultSetting := range DefaultSettings {
		if _, exists := settings[key]; !exists {
			settings[key] = defaultSetting
		}
	}

	return settings, nil
}

func ValidateSetting(key, value string) error {
	switch key {
	case KeyDefaultProvider:
		if _, ok := provider.Parse(value); !ok {
			return fmt.Errorf("unknown provider %q", value)
		}
	case KeyDefaultFromLanguage:
		if !contains(samples.SourceLanguages, value) {
			return fmt.Errorf("unknown source language %q", value)
		}
	case KeyDefaultTargetStack:
		if !contains(samples.TargetStacks, value) {
			return fmt.Errorf("unknown target stack %q", value)
		}
	case KeyHistoryLimit:
		if val, err := strconv.Atoi(value); err != nil || val < 1 || val > 500 {
			return fmt.Errorf("must be integer between 1 and 500")
		}
	case KeyLoadSampleOnStart:
		if value != "true" && value != "false" {
			return fmt.Errorf("must be 'true' or 'false'")
		}
	}
	return nil
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// NormalizeStored rewrites stored values into their canonical form and drops
// rows that no longer validate, so they fall back to defaults. It returns the
// number of rows changed.
func (sm *SettingsManager) NormalizeStored() (int, error) {
	rows, err := sm.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return 0, err
	}
	stored := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			rows.Close()
			return 0, err
		}
		stored[key] = value
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	changed := 0
	for key, value := range stored {
		canonical := canonicalValue(key, value)
		if _, known := DefaultSettings[key]; !known || ValidateSetting(key, canonical) != nil {
			if _, err := sm.db.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
				return changed, err
			}
			logger.Warn("Dropped invalid stored setting", zap.String("key", key), zap.String("value", value))
			changed++
			continue
		}
		if canonical != value {
			if err := sm.SetSetting(key, canonical); err != nil {
				return changed, err
			}
			logger.Info("Normalized stored setting",
				zap.String("key", key),
				zap.String("from", value),
				zap.String("to", canonical))
			changed++
		}
	}
	return changed, nil
}

func canonicalValue(key, value string) string {
	trimmed := strings.TrimSpace(value)
	switch key {
	case KeyDefaultProvider:
		if p, ok := provider.Parse(trimmed); ok {
			return string(p)
		}
	case KeyDefaultFromLanguage:
		return matchFold(samples.SourceLanguages, trimmed)
	case KeyDefaultTargetStack:
		return matchFold(samples.TargetStacks, trimmed)
	case KeyLoadSampleOnStart:
		return strings.ToLower(trimmed)
	}
	return trimmed
}

func matchFold(list []string, value string) string {
	for _, v := range list {
		if strings.EqualFold(v, value) {
			return v
		}
	}
	return value
}
