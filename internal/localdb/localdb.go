package localdb

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
)

var DBClient *sql.DB

func SetupDB(dbPath string) (*sql.DB, error) {
	if DBClient != nil {
		return DBClient, nil
	}

	// WAL plus busy timeout so concurrent handlers wait instead of failing on SQLITE_BUSY.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// sqlite has a single writer.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		description TEXT,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		_ = db.Close()
		logger.Error("Failed to create settings table", zap.Error(err))
		return nil, fmt.Errorf("failed to create settings table: %w", err)
	}

	if err := SetupConversionsTable(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := SetupProviderUsageTable(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	DBClient = db
	return db, nil
}

// GetDB returns the current connection, nil before SetupDB.
func GetDB() *sql.DB {
	return DBClient
}

// Close releases the connection and forgets it so SetupDB can open another.
func Close() error {
	if DBClient == nil {
		return nil
	}
	err := DBClient.Close()
	DBClient = nil
	return err
}

var errNotInitialized = errors.New("database not initialized")
