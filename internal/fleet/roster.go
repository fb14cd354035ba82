package fleet

import (
	"fmt"
	"math/rand"
)

// BusesPerCorridor is the number of roster buses serving each corridor.
const BusesPerCorridor = 10

type corridor struct {
	Name   string
	Origin Location
}

var corridors = []corridor{
	{"Mumbai → Delhi", Location{19.0760, 72.8777}},
	{"Mumbai → Pune", Location{19.0330, 73.0297}},
	{"Delhi → Jaipur", Location{28.6139, 77.2090}},
	{"Delhi → Chandigarh", Location{28.7041, 77.1025}},
	{"Bangalore → Chennai", Location{12.9716, 77.5946}},
	{"Chennai → Bangalore", Location{13.0827, 80.2707}},
	{"Kolkata → Hyderabad", Location{22.5726, 88.3639}},
	{"Hyderabad → Bangalore", Location{17.3850, 78.4867}},
	{"Pune → Goa", Location{18.5204, 73.8567}},
}

var (
	busModels  = []string{"Volvo B11R", "Scania K360", "Mercedes-Benz Tourismo", "Tata Marcopolo", "Ashok Leyland Viking", "BharatBenz 1623C", "Eicher Skyline"}
	busNames   = []string{"SmartBus Pro", "GreenLine Express", "City Connect", "Royal Cruiser", "Metro Link"}
	categories = []string{"Premium", "Standard", "Luxury"}
	capacities = []int{40, 42, 44, 45, 46, 48, 50, 52}
)

// newRoster builds the fixed fleet. Layout is deterministic; starting
// occupancy comes from rng. In every corridor the last bus is out
// of service: in maintenance on every third corridor, idle elsewhere.
func newRoster(rng *rand.Rand) []*LiveBus {
	out := make([]*LiveBus, 0, len(corridors)*BusesPerCorridor)
	for ci, c := range corridors {
		for j := 0; j < BusesPerCorridor; j++ {
			id := len(out) + 1
			status := StatusActive
			if j == BusesPerCorridor-1 {
				status = StatusIdle
				if ci%3 == 0 {
					status = StatusMaintenance
				}
			}
			capacity := capacities[(ci+j)%len(capacities)]
			b := &LiveBus{
				ID:           id,
				Code:         fmt.Sprintf("SB%03d", id),
				Name:         busNames[j%len(busNames)],
				Model:        busModels[(ci*BusesPerCorridor+j)%len(busModels)],
				Capacity:     capacity,
				Category:     categories[j%len(categories)],
				CurrentRoute: c.Name,
				Status:       status,
				FuelLevel:    85,
				Location:     c.Origin,
			}
			if status == StatusActive {
				b.Occupancy = rng.Intn(capacity + 1)
			}
			out = append(out, b)
		}
	}
	return out
}
