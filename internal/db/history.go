package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"eve-hubarb/internal/engine"
)

// RunRecord is a scan history entry.
type RunRecord struct {
	ID          int64           `json:"id"`
	RunID       string          `json:"run_id"`
	StartedAt   string          `json:"started_at"`
	Hubs        []string        `json:"hubs"`
	Count       int             `json:"count"`
	TopProfit   float64         `json:"top_profit"`
	TotalProfit float64         `json:"total_profit"`
	DurationMs  int64           `json:"duration_ms"`
	Stats       json.RawMessage `json:"stats"`
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertRun records a run in scan_history and returns its row ID.
func (d *DB) InsertRun(ctx context.Context, res *engine.RunResult) (int64, error) {
	return insertRun(ctx, d.sql, res)
}

func insertRun(ctx context.Context, ex execer, res *engine.RunResult) (int64, error) {
	var top, total float64
	for i, o := range res.Opportunities {
		if i == 0 || o.NetProfit > top {
			top = o.NetProfit
		}
		total += o.NetProfit
	}
	stats, err := json.Marshal(res.Stats)
	if err != nil {
		return 0, fmt.Errorf("marshal run stats: %w", err)
	}
	result, err := ex.ExecContext(ctx,
		`INSERT INTO scan_history (run_id, started_at, hubs, count, top_profit, total_profit, duration_ms, stats_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.StartedAt.UTC().Format(time.RFC3339), strings.Join(res.Hubs, ","),
		len(res.Opportunities), top, total, res.Stats.Elapsed.Milliseconds(), string(stats),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run %s: %w", res.RunID, err)
	}
	return result.LastInsertId()
}

// GetHistory returns the last N runs, newest first.
func (d *DB) GetHistory(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, run_id, started_at, hubs, count, top_profit, total_profit, duration_ms, stats_json
		 FROM scan_history ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var hubs, stats string
		if err := rows.Scan(&r.ID, &r.RunID, &r.StartedAt, &hubs, &r.Count, &r.TopProfit, &r.TotalProfit, &r.DurationMs, &stats); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if hubs != "" {
			r.Hubs = strings.Split(hubs, ",")
		}
		r.Stats = json.RawMessage(stats)
		records = append(records, r)
	}
	return records, rows.Err()
}
