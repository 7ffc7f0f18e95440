package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"eve-hubarb/internal/logger"
)

// DB wraps a SQLite database connection.
type DB struct {
	sql *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS scan_history (
				id           INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id       TEXT NOT NULL UNIQUE,
				started_at   TEXT NOT NULL,
				hubs         TEXT NOT NULL,
				count        INTEGER NOT NULL,
				top_profit   REAL NOT NULL,
				total_profit REAL NOT NULL,
				duration_ms  INTEGER NOT NULL,
				stats_json   TEXT NOT NULL DEFAULT '{}'
			);
			CREATE INDEX IF NOT EXISTS idx_scan_history_ts ON scan_history(started_at);

			CREATE TABLE IF NOT EXISTS opportunities (
				type_id        INTEGER NOT NULL,
				buy_hub        TEXT NOT NULL,
				sell_hub       TEXT NOT NULL,
				type_name      TEXT NOT NULL,
				buy_price      REAL NOT NULL,
				sell_price     REAL NOT NULL,
				quantity       INTEGER NOT NULL,
				gross_profit   REAL NOT NULL,
				transport_cost REAL NOT NULL,
				net_profit     REAL NOT NULL,
				profit_percent REAL NOT NULL,
				isk_per_hour   REAL NOT NULL,
				minutes        REAL NOT NULL,
				jumps          INTEGER NOT NULL,
				ship           TEXT NOT NULL,
				strategy       TEXT NOT NULL,
				score          REAL NOT NULL,
				verdict        TEXT NOT NULL,
				risk           TEXT NOT NULL,
				fingerprint    TEXT NOT NULL,
				first_seen     TEXT NOT NULL,
				last_seen      TEXT NOT NULL,
				times_seen     INTEGER NOT NULL DEFAULT 1,
				last_run_id    TEXT NOT NULL,
				PRIMARY KEY (type_id, buy_hub, sell_hub)
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}

	if version < 2 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS seen_routes (
				type_id     INTEGER NOT NULL,
				buy_hub     TEXT NOT NULL,
				sell_hub    TEXT NOT NULL,
				fingerprint TEXT NOT NULL,
				seen_at     TEXT NOT NULL,
				PRIMARY KEY (type_id, buy_hub, sell_hub)
			);
			CREATE INDEX IF NOT EXISTS idx_opportunities_net ON opportunities(net_profit);
			CREATE INDEX IF NOT EXISTS idx_opportunities_score ON opportunities(score);

			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
		logger.Info("DB", "Applied migration v2 (seen routes)")
	}

	return nil
}
