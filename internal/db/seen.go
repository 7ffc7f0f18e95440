package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eve-hubarb/internal/engine"
)

// Fingerprints implements engine.SeenStore.
func (d *DB) Fingerprints(ctx context.Context, keys []engine.RouteKey) (map[engine.RouteKey]string, error) {
	out := make(map[engine.RouteKey]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	stmt, err := d.sql.PrepareContext(ctx,
		"SELECT fingerprint FROM seen_routes WHERE type_id = ? AND buy_hub = ? AND sell_hub = ?")
	if err != nil {
		return nil, fmt.Errorf("prepare seen lookup: %w", err)
	}
	defer stmt.Close()

	for _, k := range keys {
		var fp string
		err := stmt.QueryRowContext(ctx, k.TypeID, k.BuyHub, k.SellHub).Scan(&fp)
		if err == nil {
			out[k] = fp
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("seen lookup %d %s -> %s: %w", k.TypeID, k.BuyHub, k.SellHub, err)
		}
	}
	return out, nil
}

// Remember implements engine.SeenStore.
func (d *DB) Remember(ctx context.Context, entries []engine.SeenEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO seen_routes (type_id, buy_hub, sell_hub, fingerprint, seen_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (type_id, buy_hub, sell_hub) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			seen_at = excluded.seen_at`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare remember: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Key.TypeID, e.Key.BuyHub, e.Key.SellHub, e.Fingerprint, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("remember %d %s -> %s: %w", e.Key.TypeID, e.Key.BuyHub, e.Key.SellHub, err)
		}
	}
	return tx.Commit()
}
