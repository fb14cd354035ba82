package buses

import "time"

// Bus is a scheduled service. Buses run daily; departure and arrival are
// wall-clock "HH:MM" times.
type Bus struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Operator      string    `json:"operator"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	Price         float64   `json:"price"`
	DepartureTime string    `json:"departureTime"`
	ArrivalTime   string    `json:"arrivalTime"`
	Capacity      int       `json:"capacity"`
	Type          string    `json:"type"`
	Rating        float64   `json:"rating"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Listing is a bus annotated with its current availability.
type Listing struct {
	Bus
	AvailableSeats int `json:"availableSeats"`
	Occupancy      int `json:"occupancy"`
}

// Detail additionally carries the labels already booked.
type Detail struct {
	Bus
	AvailableSeats int      `json:"availableSeats"`
	BookedSeats    []string `json:"bookedSeats"`
	Occupancy      int      `json:"occupancy"`
}

// Filter narrows a bus search. Empty fields match everything; Type "all"
// disables the type filter.
type Filter struct {
	From string
	To   string
	Type string
	Date string
}

// Seat states reported in a seat map.
const (
	SeatAvailable = "available"
	SeatBooked    = "booked"
	SeatHeld      = "held"
)

type Seat struct {
	Label  string `json:"label"`
	Status string `json:"status"`
}

// SeatMap is the per-seat view of one bus.
type SeatMap struct {
	BusID          string `json:"busId"`
	Capacity       int    `json:"capacity"`
	AvailableSeats int    `json:"availableSeats"`
	Seats          []Seat `json:"seats"`
}
