package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eve-hubarb/internal/engine"
	"eve-hubarb/internal/logger"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	logger.SetOutput(nil)
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hubarb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// fakeESI serves one page per region from the given orders.
func fakeESI(t *testing.T, orders map[int32]string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		var region int32
		if _, err := fmt.Sscanf(r.URL.Path, "/markets/%d/orders/", &region); err != nil {
			http.NotFound(w, r)
			return
		}
		body, ok := orders[region]
		if !ok || r.URL.Query().Get("page") != "1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Pages", "1")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func order(typeID int32, location int64, price float64, volume int64, isBuy bool) string {
	issued := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	return fmt.Sprintf(`{"order_id":1,"type_id":%d,"location_id":%d,"price":%v,"volume_remain":%d,"is_buy_order":%v,"issued":%q}`,
		typeID, location, price, volume, isBuy, issued)
}

func scanConfig(t *testing.T, baseURL, extra string) string {
	return writeConfig(t, fmt.Sprintf(`
hubs: [Jita, Amarr]
items: [3828]
fetch:
  base_url: %s
  requests_per_second: 1000
  burst: 1000
policy:
  min_net_profit: 10000
cost:
  strategy: flat
  capacity_policy: discard
output:
  format: json
  color: never
%s`, baseURL, extra))
}

func marketFixture(t *testing.T) *httptest.Server {
	return countedMarketFixture(t, nil)
}

func countedMarketFixture(t *testing.T, hits *atomic.Int32) *httptest.Server {
	return fakeESI(t, map[int32]string{
		10000002: "[" + order(3828, 60003760, 10000, 2000, false) + "]",
		10000043: "[" + order(3828, 60008494, 14000, 1500, true) + "]",
	}, hits)
}

func TestHubsCommand(t *testing.T) {
	out, err := run(t, "hubs", "--config", writeConfig(t, "logging:\n  level: error\n"))
	require.NoError(t, err)
	assert.Contains(t, out, "Jita")
	assert.Contains(t, out, "60003760")
	assert.Contains(t, out, "GATE JUMPS")
}

func TestShipsCommand(t *testing.T) {
	cfg := writeConfig(t, "logging:\n  level: error\n")

	out, err := run(t, "ships", "jita", "amarr", "--volume", "50", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Jita -> Amarr")
	assert.Contains(t, out, "Fenrir")

	out, err = run(t, "ships", "Jita", "Amarr", "--item", "587", "--quantity", "1000", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "No ship can carry")

	_, err = run(t, "ships", "Jita", "Nowhere", "--volume", "50", "--config", cfg)
	assert.ErrorIs(t, err, engine.ErrConfiguration)

	_, err = run(t, "ships", "Jita", "Amarr", "--config", cfg)
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}

func TestScan_ConfigErrorsFailFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()
	cfg := scanConfig(t, srv.URL, "")

	tests := [][]string{
		{"--strategy", "teleport"},
		{"--capacity-policy", "maybe"},
		{"--hubs", "Jita,Atlantis"},
		{"--hubs", "Jita"},
		{"--items", "999999"},
		{"--by", "vibes"},
		{"--cycles", "3"},
		{"--interval=-1s"},
	}
	for _, extra := range tests {
		_, err := run(t, append([]string{"scan", "--config", cfg}, extra...)...)
		assert.ErrorIs(t, err, engine.ErrConfiguration, "flags %v", extra)
	}
	assert.Zero(t, calls.Load(), "no fetch may start on a configuration error")
}

func TestScan_JSONReport(t *testing.T) {
	srv := marketFixture(t)
	out, err := run(t, "scan", "--config", scanConfig(t, srv.URL, ""))
	require.NoError(t, err)

	var doc struct {
		RunID         string `json:"run_id"`
		Opportunities []struct {
			TypeID    int32   `json:"type_id"`
			BuyHub    string  `json:"buy_hub"`
			SellHub   string  `json:"sell_hub"`
			Quantity  int64   `json:"quantity"`
			NetProfit float64 `json:"net_profit"`
		} `json:"opportunities"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	assert.NotEmpty(t, doc.RunID)
	require.Len(t, doc.Opportunities, 1)
	o := doc.Opportunities[0]
	assert.Equal(t, int32(3828), o.TypeID)
	assert.Equal(t, "Jita", o.BuyHub)
	assert.Equal(t, "Amarr", o.SellHub)
	assert.Equal(t, int64(1500), o.Quantity)
	assert.InDelta(t, 5_700_000, o.NetProfit, 1e-3)
}

func TestScan_FailedHubIsNotFatal(t *testing.T) {
	srv := fakeESI(t, map[int32]string{
		10000002: "[" + order(3828, 60003760, 10000, 2000, false) + "]",
	}, nil)
	out, err := run(t, "scan", "--config", scanConfig(t, srv.URL, ""))
	require.NoError(t, err)
	assert.Contains(t, out, `"opportunities": []`)
}

func TestScan_StoreThenTop(t *testing.T) {
	srv := marketFixture(t)
	dbPath := filepath.Join(t.TempDir(), "hubarb.db")
	cfg := scanConfig(t, srv.URL, fmt.Sprintf("store:\n  enabled: true\n  path: %s\n", dbPath))

	_, err := run(t, "scan", "--config", cfg)
	require.NoError(t, err)

	out, err := run(t, "top", "--config", cfg, "--format", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "Construction Blocks")
	assert.Contains(t, out, "Jita -> Amarr")

	out, err = run(t, "history", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Jita,Amarr")
}

func TestScan_DedupeSuppressesUnchangedRoutes(t *testing.T) {
	srv := marketFixture(t)
	dbPath := filepath.Join(t.TempDir(), "hubarb.db")
	cfg := scanConfig(t, srv.URL, fmt.Sprintf("store:\n  enabled: true\n  path: %s\nrank:\n  dedupe: sqlite\n", dbPath))

	first, err := run(t, "scan", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, first, `"buy_hub": "Jita"`)

	second, err := run(t, "scan", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, second, `"opportunities": []`)
}

func TestScan_RequiredStoreFailure(t *testing.T) {
	srv := marketFixture(t)
	bad := filepath.Join(t.TempDir(), "missing", "dir", "hubarb.db")
	cfg := scanConfig(t, srv.URL, fmt.Sprintf("store:\n  enabled: true\n  required: true\n  path: %s\n", bad))

	_, err := run(t, "scan", "--config", cfg)
	require.Error(t, err)
	assert.NotErrorIs(t, err, engine.ErrConfiguration)

	optional := scanConfig(t, srv.URL, fmt.Sprintf("store:\n  enabled: true\n  path: %s\n", bad))
	out, err := run(t, "scan", "--config", optional)
	require.NoError(t, err, "an optional store must not fail the run")
	assert.True(t, strings.Contains(out, "Construction Blocks"))
}

func TestScan_JSONKeepsLogsOffStdout(t *testing.T) {
	srv := marketFixture(t)
	tables := filepath.Join(t.TempDir(), "tables.toml")
	require.NoError(t, os.WriteFile(tables, []byte(`
[[item]]
type_id = 3828
name = "Construction Blocks"
volume = 1.5
`), 0o644))
	cfg := scanConfig(t, srv.URL, fmt.Sprintf("tables_path: %s\n", tables))

	var stdoutLog bytes.Buffer
	logger.SetOutput(&stdoutLog)
	out, err := run(t, "scan", "--config", cfg, "--log-level", "debug")
	require.NoError(t, err)

	assert.Empty(t, stdoutLog.String(), "log lines must not reach stdout in json mode")
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
}

func TestScan_RepeatedCyclesSuppressUnchangedRoutes(t *testing.T) {
	var hits atomic.Int32
	srv := countedMarketFixture(t, &hits)
	cfg := scanConfig(t, srv.URL, "")

	out, err := run(t, "scan", "--config", cfg, "--interval", "10ms", "--cycles", "2")
	require.NoError(t, err)

	type cycleDoc struct {
		RunID         string            `json:"run_id"`
		Opportunities []json.RawMessage `json:"opportunities"`
		Stats         struct {
			Suppressed int `json:"suppressed"`
		} `json:"stats"`
	}
	dec := json.NewDecoder(strings.NewReader(out))
	var docs []cycleDoc
	for dec.More() {
		var d cycleDoc
		require.NoError(t, dec.Decode(&d))
		docs = append(docs, d)
	}
	require.Len(t, docs, 2)
	assert.Len(t, docs[0].Opportunities, 1)
	assert.Empty(t, docs[1].Opportunities)
	assert.Equal(t, 1, docs[1].Stats.Suppressed)
	assert.NotEqual(t, docs[0].RunID, docs[1].RunID)
	assert.Equal(t, int32(2), hits.Load(), "second cycle should be served from the page cache")
}
