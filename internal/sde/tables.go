package sde

// Default returns the built-in tables for the five empire trade hubs.
func Default() *Data {
	d := &Data{
		Hubs: []Hub{
			{Name: "Jita", RegionID: 10000002, StationID: 60003760, SystemID: 30000142},
			{Name: "Amarr", RegionID: 10000043, StationID: 60008494, SystemID: 30002187},
			{Name: "Dodixie", RegionID: 10000032, StationID: 60011866, SystemID: 30002659},
			{Name: "Rens", RegionID: 10000030, StationID: 60004588, SystemID: 30002510},
			{Name: "Hek", RegionID: 10000042, StationID: 60005686, SystemID: 30002053},
		},
		Items: []Item{
			{TypeID: 34, Name: "Tritanium", Volume: 0.01},
			{TypeID: 35, Name: "Pyerite", Volume: 0.01},
			{TypeID: 36, Name: "Mexallon", Volume: 0.01},
			{TypeID: 37, Name: "Isogen", Volume: 0.01},
			{TypeID: 38, Name: "Nocxium", Volume: 0.01},
			{TypeID: 39, Name: "Zydrine", Volume: 0.01},
			{TypeID: 40, Name: "Megacyte", Volume: 0.01},
			{TypeID: 11399, Name: "Morphite", Volume: 0.01},
			{TypeID: 587, Name: "Rifter", Volume: 2500},
			{TypeID: 2488, Name: "Warrior II", Volume: 5},
			{TypeID: 3828, Name: "Construction Blocks", Volume: 1.5},
			{TypeID: 44992, Name: "PLEX", Volume: 0.01},
		},
		Ships: []CargoShip{
			{Name: "Providence", CargoCapacity: 110000, JumpRange: 4.0, FuelPerJump: 800, FuelUnitPrice: 5000, InsurancePerTrip: 500000, MaxJumpsPerTrip: 8},
			{Name: "Ark", CargoCapacity: 130000, JumpRange: 4.5, FuelPerJump: 900, FuelUnitPrice: 5000, InsurancePerTrip: 600000, MaxJumpsPerTrip: 10},
			{Name: "Occator", CargoCapacity: 320000, JumpRange: 5.5, FuelPerJump: 1200, FuelUnitPrice: 5000, InsurancePerTrip: 800000, MaxJumpsPerTrip: 12},
			{Name: "Mammoth", CargoCapacity: 620000, JumpRange: 5.0, FuelPerJump: 1000, FuelUnitPrice: 5000, InsurancePerTrip: 1000000, MaxJumpsPerTrip: 10},
			{Name: "Fenrir", CargoCapacity: 1200000, JumpRange: 6.0, FuelPerJump: 1500, FuelUnitPrice: 5000, InsurancePerTrip: 1500000, MaxJumpsPerTrip: 15},
		},
		Travel: []Travel{
			{From: "Jita", To: "Amarr", DistanceLY: 15.2, GateJumps: 9, Minutes: 20, CostMultiplier: 0.02},
			{From: "Jita", To: "Dodixie", DistanceLY: 12.8, GateJumps: 15, Minutes: 32, CostMultiplier: 0.03},
			{From: "Jita", To: "Rens", DistanceLY: 18.5, GateJumps: 23, Minutes: 48, CostMultiplier: 0.04},
			{From: "Jita", To: "Hek", DistanceLY: 22.1, GateJumps: 25, Minutes: 52, CostMultiplier: 0.05},
			{From: "Amarr", To: "Dodixie", DistanceLY: 8.3, GateJumps: 17, Minutes: 36, CostMultiplier: 0.025},
			{From: "Amarr", To: "Rens", DistanceLY: 25.7, GateJumps: 28, Minutes: 58, CostMultiplier: 0.035},
			{From: "Amarr", To: "Hek", DistanceLY: 19.4, GateJumps: 30, Minutes: 62, CostMultiplier: 0.045},
			{From: "Dodixie", To: "Rens", DistanceLY: 9.2, GateJumps: 12, Minutes: 26, CostMultiplier: 0.02},
			{From: "Dodixie", To: "Hek", DistanceLY: 11.6, GateJumps: 18, Minutes: 38, CostMultiplier: 0.03},
			{From: "Rens", To: "Hek", DistanceLY: 6.8, GateJumps: 6, Minutes: 14, CostMultiplier: 0.015},
		},
		DefaultTravel: Travel{DistanceLY: 20.0, GateJumps: 15, Minutes: 35, CostMultiplier: 0.035},
	}
	if err := d.index(); err != nil {
		panic(err)
	}
	return d
}
