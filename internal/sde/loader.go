package sde

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"eve-hubarb/internal/logger"
)

// Hub is a trade hub: one NPC station inside a market region.
type Hub struct {
	Name      string `toml:"name" json:"name"`
	RegionID  int32  `toml:"region_id" json:"region_id"`
	StationID int64  `toml:"station_id" json:"station_id"`
	SystemID  int32  `toml:"system_id" json:"system_id"`
}

// Item is a tradeable type.
type Item struct {
	TypeID int32   `toml:"type_id" json:"type_id"`
	Name   string  `toml:"name" json:"name"`
	Volume float64 `toml:"volume" json:"volume"` // packaged m³ per unit
}

// CargoShip describes a hauler used by the detailed transport cost model.
type CargoShip struct {
	Name             string  `toml:"name" json:"name"`
	CargoCapacity    float64 `toml:"cargo_capacity" json:"cargo_capacity"` // m³
	JumpRange        float64 `toml:"jump_range" json:"jump_range"`         // light years
	FuelPerJump      float64 `toml:"fuel_per_jump" json:"fuel_per_jump"`
	FuelUnitPrice    float64 `toml:"fuel_unit_price" json:"fuel_unit_price"`
	InsurancePerTrip float64 `toml:"insurance_per_trip" json:"insurance_per_trip"`
	MaxJumpsPerTrip  int     `toml:"max_jumps_per_trip" json:"max_jumps_per_trip"` // 0 = unlimited
}

// Travel holds the fixed travel figures between two hubs. Entries are symmetric.
type Travel struct {
	From           string  `toml:"from" json:"from"`
	To             string  `toml:"to" json:"to"`
	DistanceLY     float64 `toml:"distance_ly" json:"distance_ly"`
	GateJumps      int     `toml:"gate_jumps" json:"gate_jumps"`
	Minutes        int     `toml:"minutes" json:"minutes"`
	CostMultiplier float64 `toml:"cost_multiplier" json:"cost_multiplier"`
}

// DefaultItemVolume is used for items whose volume is not configured.
const DefaultItemVolume = 0.01

type pairKey struct{ a, b string }

func newPairKey(a, b string) pairKey {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if b < a {
		a, b = b, a
	}
	return pairKey{a, b}
}

// Data is the immutable set of static tables used by a run.
// It is built once by Load or Default and never mutated afterwards.
type Data struct {
	Hubs          []Hub       `toml:"hub"`
	Items         []Item      `toml:"item"`
	Ships         []CargoShip `toml:"ship"`
	Travel        []Travel    `toml:"travel"`
	DefaultTravel Travel      `toml:"default_travel"`

	hubByName map[string]Hub
	itemByID  map[int32]Item
	travel    map[pairKey]Travel
}

// Load reads static tables from a TOML file. An empty path returns the
// built-in tables. Sections missing from the file fall back to the defaults.
func Load(path string) (*Data, error) {
	if path == "" {
		return Default(), nil
	}
	var d Data
	if _, err := toml.DecodeFile(path, &d); err != nil {
		return nil, fmt.Errorf("decode tables %s: %w", path, err)
	}
	def := Default()
	if len(d.Hubs) == 0 {
		d.Hubs = def.Hubs
	}
	if len(d.Items) == 0 {
		d.Items = def.Items
	}
	if len(d.Ships) == 0 {
		d.Ships = def.Ships
	}
	if len(d.Travel) == 0 {
		d.Travel = knownTravel(def.Travel, d.Hubs)
	}
	if d.DefaultTravel.Minutes == 0 && d.DefaultTravel.CostMultiplier == 0 {
		d.DefaultTravel = def.DefaultTravel
	}
	if err := d.index(); err != nil {
		return nil, fmt.Errorf("tables %s: %w", path, err)
	}
	logger.Success("SDE", fmt.Sprintf("Loaded %d hubs, %d items, %d ships from %s",
		len(d.Hubs), len(d.Items), len(d.Ships), path))
	return &d, nil
}

func (d *Data) index() error {
	d.hubByName = make(map[string]Hub, len(d.Hubs))
	for _, h := range d.Hubs {
		key := strings.ToLower(h.Name)
		if h.Name == "" || h.RegionID <= 0 || h.StationID <= 0 {
			return fmt.Errorf("hub %q: name, region_id and station_id are required", h.Name)
		}
		if _, dup := d.hubByName[key]; dup {
			return fmt.Errorf("duplicate hub %q", h.Name)
		}
		d.hubByName[key] = h
	}

	d.itemByID = make(map[int32]Item, len(d.Items))
	for i, it := range d.Items {
		if it.TypeID <= 0 {
			return fmt.Errorf("item %q: type_id must be positive", it.Name)
		}
		if it.Volume <= 0 {
			it.Volume = DefaultItemVolume
			d.Items[i] = it
		}
		if it.Name == "" {
			it.Name = fmt.Sprintf("Type %d", it.TypeID)
			d.Items[i] = it
		}
		if _, dup := d.itemByID[it.TypeID]; dup {
			return fmt.Errorf("duplicate item type_id %d", it.TypeID)
		}
		d.itemByID[it.TypeID] = it
	}

	for _, s := range d.Ships {
		if s.CargoCapacity <= 0 || s.JumpRange <= 0 {
			return fmt.Errorf("ship %q: cargo_capacity and jump_range must be positive", s.Name)
		}
	}

	d.travel = make(map[pairKey]Travel, len(d.Travel))
	for _, t := range d.Travel {
		for _, name := range []string{t.From, t.To} {
			if _, ok := d.hubByName[strings.ToLower(name)]; !ok {
				return fmt.Errorf("travel %s-%s: unknown hub %q", t.From, t.To, name)
			}
		}
		key := newPairKey(t.From, t.To)
		if key.a == key.b {
			return fmt.Errorf("travel %s-%s: hubs must differ", t.From, t.To)
		}
		if _, dup := d.travel[key]; dup {
			return fmt.Errorf("duplicate travel entry %s-%s", t.From, t.To)
		}
		d.travel[key] = t
	}
	return nil
}

// knownTravel keeps the entries whose hubs are both in hubs.
func knownTravel(travel []Travel, hubs []Hub) []Travel {
	names := make(map[string]bool, len(hubs))
	for _, h := range hubs {
		names[strings.ToLower(h.Name)] = true
	}
	var out []Travel
	for _, t := range travel {
		if names[strings.ToLower(t.From)] && names[strings.ToLower(t.To)] {
			out = append(out, t)
		}
	}
	return out
}

// Hub looks up a hub by case-insensitive name.
func (d *Data) Hub(name string) (Hub, bool) {
	h, ok := d.hubByName[strings.ToLower(strings.TrimSpace(name))]
	return h, ok
}

// Item looks up an item by type ID.
func (d *Data) Item(typeID int32) (Item, bool) {
	it, ok := d.itemByID[typeID]
	return it, ok
}

// Route returns the travel entry between two hubs in either direction,
// or DefaultTravel (with From/To filled in) when the pair is not tabled.
func (d *Data) Route(from, to string) Travel {
	if t, ok := d.travel[newPairKey(from, to)]; ok {
		return t
	}
	t := d.DefaultTravel
	t.From, t.To = from, to
	return t
}

// SelectHubs resolves hub names in the given order. An empty list selects all hubs.
func (d *Data) SelectHubs(names []string) ([]Hub, error) {
	if len(names) == 0 {
		return append([]Hub(nil), d.Hubs...), nil
	}
	hubs := make([]Hub, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		h, ok := d.Hub(n)
		if !ok {
			return nil, fmt.Errorf("unknown hub %q", n)
		}
		if seen[h.Name] {
			continue
		}
		seen[h.Name] = true
		hubs = append(hubs, h)
	}
	return hubs, nil
}

// SelectItems resolves type IDs, sorted ascending. An empty list selects every known item.
func (d *Data) SelectItems(typeIDs []int32) ([]Item, error) {
	var items []Item
	if len(typeIDs) == 0 {
		items = append(items, d.Items...)
	} else {
		seen := make(map[int32]bool, len(typeIDs))
		for _, id := range typeIDs {
			it, ok := d.Item(id)
			if !ok {
				return nil, fmt.Errorf("unknown item type %d", id)
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].TypeID < items[j].TypeID })
	return items, nil
}
