package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"eve-hubarb/internal/engine"
	"eve-hubarb/internal/logger"
	"eve-hubarb/internal/sde"
)

// OpportunityRecord is a stored opportunity with its sighting history.
type OpportunityRecord struct {
	engine.Opportunity
	FirstSeen time.Time
	LastSeen  time.Time
	TimesSeen int
	LastRunID string
}

const upsertOpportunitySQL = `
INSERT INTO opportunities (
	type_id, buy_hub, sell_hub, type_name,
	buy_price, sell_price, quantity,
	gross_profit, transport_cost, net_profit, profit_percent, isk_per_hour,
	minutes, jumps, ship, strategy,
	score, verdict, risk, fingerprint,
	first_seen, last_seen, times_seen, last_run_id
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,1,?)
ON CONFLICT (type_id, buy_hub, sell_hub) DO UPDATE SET
	type_name = excluded.type_name,
	buy_price = excluded.buy_price,
	sell_price = excluded.sell_price,
	quantity = excluded.quantity,
	gross_profit = excluded.gross_profit,
	transport_cost = excluded.transport_cost,
	net_profit = excluded.net_profit,
	profit_percent = excluded.profit_percent,
	isk_per_hour = excluded.isk_per_hour,
	minutes = excluded.minutes,
	jumps = excluded.jumps,
	ship = excluded.ship,
	strategy = excluded.strategy,
	score = excluded.score,
	verdict = excluded.verdict,
	risk = excluded.risk,
	fingerprint = excluded.fingerprint,
	last_seen = excluded.last_seen,
	times_seen = opportunities.times_seen + 1,
	last_run_id = excluded.last_run_id`

// UpsertOpportunities stores opportunities keyed by (type_id, buy_hub, sell_hub).
func (d *DB) UpsertOpportunities(ctx context.Context, runID string, seenAt time.Time, opps []engine.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := upsertOpportunities(ctx, tx, runID, seenAt, opps); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func upsertOpportunities(ctx context.Context, tx *sql.Tx, runID string, seenAt time.Time, opps []engine.Opportunity) error {
	stmt, err := tx.PrepareContext(ctx, upsertOpportunitySQL)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	ts := seenAt.UTC().Format(time.RFC3339)
	for _, o := range opps {
		_, err := stmt.ExecContext(ctx,
			o.Item.TypeID, o.BuyHub, o.SellHub, o.Item.Name,
			o.BuyPrice, o.SellPrice, o.Quantity,
			o.GrossProfit, o.TransportCost, o.NetProfit, o.ProfitPercent, o.IskPerHour,
			o.EstimatedMinutes, o.Jumps, o.Ship, o.CostStrategy,
			o.Score, string(o.Verdict), o.Risk, engine.Fingerprint(o.Route),
			ts, ts, runID,
		)
		if err != nil {
			return fmt.Errorf("upsert %d %s -> %s: %w", o.Item.TypeID, o.BuyHub, o.SellHub, err)
		}
	}
	return nil
}

// SaveRun records the run and upserts its opportunities in one transaction.
func (d *DB) SaveRun(ctx context.Context, res *engine.RunResult) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := insertRun(ctx, tx, res); err != nil {
		tx.Rollback()
		return err
	}
	if err := upsertOpportunities(ctx, tx, res.RunID, res.StartedAt, res.Opportunities); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", res.RunID, err)
	}
	logger.Success("DB", fmt.Sprintf("Saved run %s (%d opportunities)", res.RunID, len(res.Opportunities)))
	return nil
}

// TopOpportunities returns the n best stored opportunities ordered like the ranker.
func (d *DB) TopOpportunities(ctx context.Context, n int, by engine.RankBy) ([]OpportunityRecord, error) {
	if n <= 0 {
		n = 25
	}
	order := "net_profit DESC, score DESC"
	if by == engine.RankByScore {
		order = "score DESC, net_profit DESC"
	}
	rows, err := d.sql.QueryContext(ctx, `
		SELECT type_id, buy_hub, sell_hub, type_name,
			buy_price, sell_price, quantity,
			gross_profit, transport_cost, net_profit, profit_percent, isk_per_hour,
			minutes, jumps, ship, strategy,
			score, verdict, risk,
			first_seen, last_seen, times_seen, last_run_id
		FROM opportunities
		ORDER BY `+order+`, type_id, buy_hub, sell_hub
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query opportunities: %w", err)
	}
	defer rows.Close()

	var out []OpportunityRecord
	for rows.Next() {
		var r OpportunityRecord
		var item sde.Item
		var verdict, first, last string
		err := rows.Scan(
			&item.TypeID, &r.BuyHub, &r.SellHub, &item.Name,
			&r.BuyPrice, &r.SellPrice, &r.Quantity,
			&r.GrossProfit, &r.TransportCost, &r.NetProfit, &r.ProfitPercent, &r.IskPerHour,
			&r.EstimatedMinutes, &r.Jumps, &r.Ship, &r.CostStrategy,
			&r.Score, &verdict, &r.Risk,
			&first, &last, &r.TimesSeen, &r.LastRunID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan opportunity row: %w", err)
		}
		r.Item = item
		r.Verdict = engine.Verdict(verdict)
		r.FirstSeen, _ = time.Parse(time.RFC3339, first)
		r.LastSeen, _ = time.Parse(time.RFC3339, last)
		out = append(out, r)
	}
	return out, rows.Err()
}
