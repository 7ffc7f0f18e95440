package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"eve-hubarb/internal/db"
	"eve-hubarb/internal/engine"
	"eve-hubarb/internal/sde"
)

// ISK formats an amount with thousands separators and at most two decimals.
func ISK(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func shipOrFlat(o engine.Route) string {
	if o.Ship != "" {
		return o.Ship
	}
	return "(" + o.CostStrategy + ")"
}

// WriteTable prints ranked opportunities as an aligned table.
func WriteTable(w io.Writer, opps []engine.Opportunity) error {
	if len(opps) == 0 {
		_, err := fmt.Fprintln(w, "No opportunities found.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "#\tITEM\tROUTE\tBUY\tSELL\tQTY\tNET PROFIT\tMARGIN\tISK/H\tJUMPS\tSHIP\tSCORE\tVERDICT\tRISK")
	for i, o := range opps {
		fmt.Fprintf(tw, "%d\t%s\t%s -> %s\t%s\t%s\t%s\t%s\t%.1f%%\t%s\t%d\t%s\t%.0f\t%s\t%s\n",
			i+1, o.Item.Name, o.BuyHub, o.SellHub,
			ISK(o.BuyPrice), ISK(o.SellPrice), humanize.Comma(o.Quantity),
			ISK(o.NetProfit), o.ProfitPercent, ISK(o.IskPerHour), o.Jumps, shipOrFlat(o.Route),
			o.Score, o.Verdict, o.Risk)
	}
	return tw.Flush()
}

// jsonOpportunity is the wire form of an opportunity.
type jsonOpportunity struct {
	TypeID        int32                 `json:"type_id"`
	Item          string                `json:"item"`
	BuyHub        string                `json:"buy_hub"`
	SellHub       string                `json:"sell_hub"`
	BuyPrice      float64               `json:"buy_price"`
	SellPrice     float64               `json:"sell_price"`
	Quantity      int64                 `json:"quantity"`
	AvailableSell int64                 `json:"available_sell"`
	AvailableBuy  int64                 `json:"available_buy"`
	CargoVolume   float64               `json:"cargo_volume"`
	GrossProfit   float64               `json:"gross_profit"`
	TransportCost float64               `json:"transport_cost"`
	NetProfit     float64               `json:"net_profit"`
	ProfitPercent float64               `json:"profit_percent"`
	Minutes       float64               `json:"estimated_minutes"`
	IskPerHour    float64               `json:"isk_per_hour"`
	Jumps         int                   `json:"jumps"`
	Ship          string                `json:"ship,omitempty"`
	CostStrategy  string                `json:"cost_strategy"`
	Score         float64               `json:"score"`
	Verdict       engine.Verdict        `json:"verdict"`
	Risk          string                `json:"risk"`
	Breakdown     engine.ScoreBreakdown `json:"breakdown"`
}

func toJSON(o engine.Opportunity) jsonOpportunity {
	return jsonOpportunity{
		TypeID:        o.Item.TypeID,
		Item:          o.Item.Name,
		BuyHub:        o.BuyHub,
		SellHub:       o.SellHub,
		BuyPrice:      o.BuyPrice,
		SellPrice:     o.SellPrice,
		Quantity:      o.Quantity,
		AvailableSell: o.AvailableSell,
		AvailableBuy:  o.AvailableBuy,
		CargoVolume:   o.CargoVolume,
		GrossProfit:   o.GrossProfit,
		TransportCost: o.TransportCost,
		NetProfit:     o.NetProfit,
		ProfitPercent: o.ProfitPercent,
		Minutes:       o.EstimatedMinutes,
		IskPerHour:    o.IskPerHour,
		Jumps:         o.Jumps,
		Ship:          o.Ship,
		CostStrategy:  o.CostStrategy,
		Score:         o.Score,
		Verdict:       o.Verdict,
		Risk:          o.Risk,
		Breakdown:     o.Breakdown,
	}
}

type jsonRun struct {
	RunID         string            `json:"run_id"`
	StartedAt     time.Time         `json:"started_at"`
	Hubs          []string          `json:"hubs"`
	Opportunities []jsonOpportunity `json:"opportunities"`
	Stats         jsonStats         `json:"stats"`
}

type jsonStats struct {
	HubsFailed     int   `json:"hubs_failed"`
	HubsPartial    int   `json:"hubs_partial"`
	OrdersScanned  int   `json:"orders_scanned"`
	OrdersRetained int   `json:"orders_retained"`
	OrdersStale    int   `json:"orders_stale"`
	Routes         int   `json:"routes"`
	Suppressed     int   `json:"suppressed"`
	ElapsedMs      int64 `json:"elapsed_ms"`
}

// WriteJSON prints a run as an indented JSON document.
func WriteJSON(w io.Writer, res *engine.RunResult) error {
	doc := jsonRun{
		RunID:         res.RunID,
		StartedAt:     res.StartedAt.UTC(),
		Hubs:          res.Hubs,
		Opportunities: make([]jsonOpportunity, 0, len(res.Opportunities)),
		Stats: jsonStats{
			HubsFailed:     res.Stats.HubsFailed,
			HubsPartial:    res.Stats.HubsPartial,
			OrdersScanned:  res.Stats.OrdersScanned,
			OrdersRetained: res.Stats.OrdersRetained,
			OrdersStale:    res.Stats.OrdersStale,
			Routes:         res.Stats.Eval.Routes,
			Suppressed:     res.Stats.Rank.Suppressed,
			ElapsedMs:      res.Stats.Elapsed.Milliseconds(),
		},
	}
	for _, o := range res.Opportunities {
		doc.Opportunities = append(doc.Opportunities, toJSON(o))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteStored prints opportunities read back from the store.
func WriteStored(w io.Writer, records []db.OpportunityRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No stored opportunities.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "#\tITEM\tROUTE\tNET PROFIT\tMARGIN\tSCORE\tVERDICT\tSEEN\tLAST SEEN")
	for i, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s -> %s\t%s\t%.1f%%\t%.0f\t%s\t%d\t%s\n",
			i+1, r.Item.Name, r.BuyHub, r.SellHub, ISK(r.NetProfit), r.ProfitPercent,
			r.Score, r.Verdict, r.TimesSeen, humanize.Time(r.LastSeen))
	}
	return tw.Flush()
}

// WriteStoredJSON prints stored opportunities as JSON.
func WriteStoredJSON(w io.Writer, records []db.OpportunityRecord) error {
	type stored struct {
		jsonOpportunity
		FirstSeen time.Time `json:"first_seen"`
		LastSeen  time.Time `json:"last_seen"`
		TimesSeen int       `json:"times_seen"`
		LastRunID string    `json:"last_run_id"`
	}
	out := make([]stored, 0, len(records))
	for _, r := range records {
		out = append(out, stored{toJSON(r.Opportunity), r.FirstSeen, r.LastSeen, r.TimesSeen, r.LastRunID})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteShips prints ship quotes for one haul.
func WriteShips(w io.Writer, quotes []engine.ShipQuote, volume float64) error {
	if len(quotes) == 0 {
		_, err := fmt.Fprintf(w, "No ship can carry %s m³ on this route.\n", humanize.Commaf(volume))
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "SHIP\tCAPACITY\tJUMPS\tFUEL\tINSURANCE\tTOTAL\tISK/M³\tMINUTES")
	for _, q := range quotes {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%.0f\n",
			q.Ship.Name, humanize.Commaf(q.Ship.CargoCapacity), q.Jumps,
			ISK(q.FuelCost), ISK(q.Insurance), ISK(q.TotalCost), ISK(q.CostPerVolume), q.Minutes)
	}
	return tw.Flush()
}

// WriteHubs prints the hub table and the travel entry of every hub pair.
func WriteHubs(w io.Writer, tables *sde.Data) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "HUB\tREGION\tSTATION\tSYSTEM")
	for _, h := range tables.Hubs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", h.Name, h.RegionID, h.StationID, h.SystemID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = newTable(w)
	fmt.Fprintln(tw, "FROM\tTO\tLY\tGATE JUMPS\tMINUTES\tFLAT RATE")
	for i, a := range tables.Hubs {
		for _, b := range tables.Hubs[i+1:] {
			t := tables.Route(a.Name, b.Name)
			fmt.Fprintf(tw, "%s\t%s\t%.1f\t%d\t%d\t%.1f%%\n", a.Name, b.Name, t.DistanceLY, t.GateJumps, t.Minutes, t.CostMultiplier*100)
		}
	}
	return tw.Flush()
}

// WriteHistory prints recorded runs, newest first.
func WriteHistory(w io.Writer, runs []db.RunRecord) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No recorded runs.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "RUN\tSTARTED\tHUBS\tROUTES\tTOP PROFIT\tTOTAL PROFIT\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.RunID, r.StartedAt, strings.Join(r.Hubs, ","), r.Count,
			ISK(r.TopProfit), ISK(r.TotalProfit), (time.Duration(r.DurationMs) * time.Millisecond).String())
	}
	return tw.Flush()
}
