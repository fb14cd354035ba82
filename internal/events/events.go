package events

// LatLng is a coordinate pair used in event payloads.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BookingCreatedEvent is published to booking.created.
type BookingCreatedEvent struct {
	BookingID  string   `json:"booking_id"`
	PNR        string   `json:"pnr"`
	UserID     string   `json:"user_id"`
	BusID      string   `json:"bus_id"`
	Seats      []string `json:"seats"`
	TotalPrice float64  `json:"total_price"`
	TravelDate string   `json:"travel_date,omitempty"`
	CreatedAt  string   `json:"created_at"`
}

// BookingCancelledEvent is published to booking.cancelled.
type BookingCancelledEvent struct {
	BookingID   string   `json:"booking_id"`
	UserID      string   `json:"user_id"`
	BusID       string   `json:"bus_id"`
	Seats       []string `json:"seats"`
	CancelledAt string   `json:"cancelled_at"`
}

// RFIDScanEvent is published to rfid.events for every boarding scan,
// simulated or submitted by a reader.
type RFIDScanEvent struct {
	ID          string `json:"id"`
	BusID       string `json:"bus_id"`
	PassengerID string `json:"passenger_id"`
	EventType   string `json:"event_type"`
	Status      string `json:"status"`
	ReaderID    string `json:"reader_id,omitempty"`
	Location    string `json:"location"`
	Timestamp   string `json:"timestamp"`
}

// TelemetryEvent is published to iot.telemetry once per active bus per tick.
type TelemetryEvent struct {
	BusID       string  `json:"bus_id"`
	Occupancy   int     `json:"occupancy"`
	Capacity    int     `json:"capacity"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Vibration   float64 `json:"vibration"`
	FuelLevel   float64 `json:"fuel_level"`
	Speed       float64 `json:"speed"`
	Location    LatLng  `json:"location"`
	Timestamp   string  `json:"timestamp"`
}
