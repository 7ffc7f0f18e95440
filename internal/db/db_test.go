package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"eve-hubarb/internal/engine"
	"eve-hubarb/internal/sde"
)

// openTestDB opens an in-memory SQLite DB and runs migrations (for testing only).
func openTestDB(t *testing.T) *DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func testOpp(typeID int32, buyHub, sellHub string, net, score float64) engine.Opportunity {
	return engine.Opportunity{
		Route: engine.Route{
			Item:          sde.Item{TypeID: typeID, Name: "Item", Volume: 0.01},
			BuyHub:        buyHub,
			SellHub:       sellHub,
			BuyPrice:      5.5,
			SellPrice:     6.2,
			Quantity:      5000,
			GrossProfit:   3500,
			TransportCost: 3500 - net,
			NetProfit:     net,
			Jumps:         3,
			Ship:          "Fenrir",
			CostStrategy:  engine.StrategyDetailed,
		},
		Score:   score,
		Verdict: engine.VerdictFor(score),
		Risk:    engine.VerdictFor(score).Risk(),
	}
}

func TestDB_MigrateIsIdempotent(t *testing.T) {
	d := openTestDB(t)
	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var version int
	if err := d.sql.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != 2 {
		t.Errorf("schema version = %d, want 2", version)
	}
}

func TestDB_SaveRunAndHistory(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	res := &engine.RunResult{
		RunID:         "run-1",
		StartedAt:     time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
		Hubs:          []string{"Jita", "Amarr"},
		Opportunities: []engine.Opportunity{testOpp(34, "Jita", "Amarr", 3000, 60), testOpp(35, "Jita", "Amarr", 1000, 40)},
	}
	res.Stats.Elapsed = 1500 * time.Millisecond
	if err := d.SaveRun(ctx, res); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	records, err := d.GetHistory(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("GetHistory len = %d, want 1", len(records))
	}
	r := records[0]
	if r.RunID != "run-1" || r.Count != 2 {
		t.Errorf("RunID/Count = %q/%d, want run-1/2", r.RunID, r.Count)
	}
	if r.TopProfit != 3000 || r.TotalProfit != 4000 {
		t.Errorf("Top/Total = %v/%v, want 3000/4000", r.TopProfit, r.TotalProfit)
	}
	if r.DurationMs != 1500 {
		t.Errorf("DurationMs = %d, want 1500", r.DurationMs)
	}
	if len(r.Hubs) != 2 || r.Hubs[0] != "Jita" {
		t.Errorf("Hubs = %v", r.Hubs)
	}
}

func TestDB_UpsertKeepsOneRowPerRoute(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	t0 := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	if err := d.UpsertOpportunities(ctx, "run-1", t0, []engine.Opportunity{testOpp(34, "Jita", "Amarr", 3000, 60)}); err != nil {
		t.Fatal(err)
	}
	if err := d.UpsertOpportunities(ctx, "run-2", t0.Add(time.Hour), []engine.Opportunity{testOpp(34, "Jita", "Amarr", 2500, 55)}); err != nil {
		t.Fatal(err)
	}

	top, err := d.TopOpportunities(ctx, 10, engine.RankByNetProfit)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 1 {
		t.Fatalf("rows = %d, want 1", len(top))
	}
	r := top[0]
	if r.NetProfit != 2500 || r.TimesSeen != 2 || r.LastRunID != "run-2" {
		t.Errorf("net/seen/run = %v/%d/%s, want 2500/2/run-2", r.NetProfit, r.TimesSeen, r.LastRunID)
	}
	if !r.FirstSeen.Equal(t0) || !r.LastSeen.Equal(t0.Add(time.Hour)) {
		t.Errorf("first/last = %v/%v", r.FirstSeen, r.LastSeen)
	}
	if r.Item.TypeID != 34 || r.Ship != "Fenrir" || r.Verdict != engine.VerdictConsider {
		t.Errorf("row = %+v", r.Opportunity)
	}
}

func TestDB_TopOpportunitiesOrdering(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	opps := []engine.Opportunity{
		testOpp(34, "Jita", "Amarr", 1000, 90),
		testOpp(35, "Jita", "Amarr", 3000, 40),
		testOpp(36, "Jita", "Amarr", 2000, 70),
	}
	if err := d.UpsertOpportunities(ctx, "run-1", time.Now(), opps); err != nil {
		t.Fatal(err)
	}

	byNet, err := d.TopOpportunities(ctx, 2, engine.RankByNetProfit)
	if err != nil {
		t.Fatal(err)
	}
	if len(byNet) != 2 || byNet[0].Item.TypeID != 35 || byNet[1].Item.TypeID != 36 {
		t.Errorf("by net = %v", typeIDs(byNet))
	}

	byScore, err := d.TopOpportunities(ctx, 3, engine.RankByScore)
	if err != nil {
		t.Fatal(err)
	}
	if len(byScore) != 3 || byScore[0].Item.TypeID != 34 || byScore[2].Item.TypeID != 35 {
		t.Errorf("by score = %v", typeIDs(byScore))
	}
}

func typeIDs(rs []OpportunityRecord) []int32 {
	out := make([]int32, len(rs))
	for i, r := range rs {
		out[i] = r.Item.TypeID
	}
	return out
}

func TestDB_SeenStore(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	k1 := engine.RouteKey{TypeID: 34, BuyHub: "Jita", SellHub: "Amarr"}
	k2 := engine.RouteKey{TypeID: 35, BuyHub: "Jita", SellHub: "Amarr"}

	got, err := d.Fingerprints(ctx, []engine.RouteKey{k1, k2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("empty store returned %v", got)
	}

	if err := d.Remember(ctx, []engine.SeenEntry{{Key: k1, Fingerprint: "a"}}); err != nil {
		t.Fatal(err)
	}
	if err := d.Remember(ctx, []engine.SeenEntry{{Key: k1, Fingerprint: "b"}}); err != nil {
		t.Fatal(err)
	}
	got, err = d.Fingerprints(ctx, []engine.RouteKey{k1, k2})
	if err != nil {
		t.Fatal(err)
	}
	if got[k1] != "b" {
		t.Errorf("fingerprint = %q, want b", got[k1])
	}
	if _, ok := got[k2]; ok {
		t.Error("unknown key reported as seen")
	}
}

func TestDB_RankerDedupeThroughStore(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	r := engine.NewRanker(engine.RankByNetProfit, 0, d)

	first, _, err := r.Rank(ctx, []engine.Opportunity{testOpp(34, "Jita", "Amarr", 3000, 60)})
	if err != nil || len(first) != 1 {
		t.Fatalf("first: %d, %v", len(first), err)
	}
	second, stats, err := r.Rank(ctx, []engine.Opportunity{testOpp(34, "Jita", "Amarr", 3000, 60)})
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 0 || stats.Suppressed != 1 {
		t.Errorf("second: %d reported, %d suppressed, want 0/1", len(second), stats.Suppressed)
	}
}
