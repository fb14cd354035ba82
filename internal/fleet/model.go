package fleet

import (
	"time"

	"smartbus-service/internal/domain"
)

var (
	errUnknownBus = domain.NotFoundError{Resource: "Bus"}
	errNoReading  = domain.NotFoundError{Resource: "Sensor data"}
)

// Bus operating states.
const (
	StatusActive      = "active"
	StatusMaintenance = "maintenance"
	StatusIdle        = "idle"
)

// RFID event types.
const (
	EventBoarding         = "BOARDING"
	EventScanFailed       = "SCAN_FAILED"
	EventCapacityExceeded = "CAPACITY_EXCEEDED"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LiveBus is a roster entry with its simulated occupancy and telemetry.
type LiveBus struct {
	ID           int       `json:"id"`
	Code         string    `json:"busNumber"`
	Name         string    `json:"busName"`
	Model        string    `json:"model"`
	Capacity     int       `json:"capacity"`
	Category     string    `json:"category"`
	CurrentRoute string    `json:"currentRoute"`
	Occupancy    int       `json:"occupancy"`
	Status       string    `json:"status"`
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	Vibration    float64   `json:"vibration"`
	FuelLevel    float64   `json:"fuelLevel"`
	Speed        float64   `json:"speed"`
	Location     Location  `json:"location"`
	LastUpdate   time.Time `json:"lastUpdate"`
}

// RFIDEvent is one boarding scan at a bus reader.
type RFIDEvent struct {
	ID          string    `json:"id"`
	BusID       int       `json:"busId"`
	BusCode     string    `json:"busNumber"`
	ReaderID    string    `json:"rfidReaderId"`
	TicketID    string    `json:"ticketId"`
	PassengerID string    `json:"passengerId"`
	EventType   string    `json:"eventType"`
	EventTime   time.Time `json:"eventTime"`
	Location    string    `json:"location"`
	Success     bool      `json:"success"`
}

// IoTReading is one sensor sample of an active bus.
type IoTReading struct {
	BusID        int       `json:"busId"`
	BusCode      string    `json:"busNumber"`
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	Vibration    float64   `json:"vibration"`
	FuelLevel    float64   `json:"fuelLevel"`
	SeatPressure []float64 `json:"seatPressure"`
	Timestamp    time.Time `json:"timestamp"`
}

// SensorRecord is the flat sensor view served by /api/iot/data.
type SensorRecord struct {
	ID          string    `json:"id"`
	BusID       string    `json:"busId"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	FuelLevel   float64   `json:"fuelLevel"`
	Speed       float64   `json:"speed"`
	Location    Location  `json:"location"`
	Timestamp   time.Time `json:"timestamp"`
}

// SystemStats are fleet-wide dashboard figures.
type SystemStats struct {
	TotalBuses       int       `json:"totalBuses"`
	ActiveRoutes     int       `json:"activeRoutes"`
	TodayPassengers  int       `json:"todayPassengers"`
	IoTSensors       int       `json:"iotSensors"`
	TotalRevenue     float64   `json:"totalRevenue"`
	EnergyEfficiency float64   `json:"energyEfficiency"`
	GreenScore       float64   `json:"greenScore"`
	TotalBookings    int       `json:"totalBookings"`
	LastUpdate       time.Time `json:"lastUpdate"`
}

// BoardingStatus summarises recent scans on one bus.
type BoardingStatus struct {
	BusID         int       `json:"busId"`
	BusCode       string    `json:"busNumber"`
	WindowMinutes int       `json:"windowMinutes"`
	TotalScans    int       `json:"totalScans"`
	Boarded       int       `json:"boarded"`
	Missed        int       `json:"missed"`
	Occupancy     int       `json:"occupancy"`
	Capacity      int       `json:"capacity"`
	LastScan      time.Time `json:"lastScan,omitempty"`
}

// ScanRequest is the body for POST /api/rfid/scan.
type ScanRequest struct {
	BusID    string `json:"busId"`
	TicketID string `json:"ticketId"`
	ReaderID string `json:"readerId"`
	Location string `json:"location"`
}
