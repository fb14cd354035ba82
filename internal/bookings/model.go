package bookings

import "time"

// Booking statuses. Only confirmed bookings hold seats.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Booking is a reservation of one or more seats on a bus.
type Booking struct {
	ID             string      `json:"id"`
	PNR            string      `json:"pnr"`
	UserID         string      `json:"userId"`
	BusID          string      `json:"busId"`
	Seats          []string    `json:"seats"`
	PassengerName  string      `json:"passengerName"`
	PassengerEmail string      `json:"passengerEmail"`
	PassengerPhone string      `json:"passengerPhone"`
	TravelDate     string      `json:"travelDate,omitempty"`
	TotalPrice     float64     `json:"totalPrice"`
	Status         string      `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
	Bus            *BusSummary `json:"bus,omitempty"`
}

// BusSummary holds the bus display fields joined onto a booking.
type BusSummary struct {
	Name          string `json:"name"`
	From          string `json:"from"`
	To            string `json:"to"`
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
}

// CreateRequest is the body for POST /api/bookings.
type CreateRequest struct {
	BusID          string   `json:"busId"`
	Seats          []string `json:"seats"`
	PassengerName  string   `json:"passengerName"`
	PassengerEmail string   `json:"passengerEmail"`
	PassengerPhone string   `json:"passengerPhone"`
	TravelDate     string   `json:"travelDate,omitempty"`
}

// HoldRequest is the body for POST and DELETE /api/bookings/holds.
type HoldRequest struct {
	BusID string   `json:"busId"`
	Seats []string `json:"seats"`
}

// Hold describes seats reserved for the caller until ExpiresAt.
type Hold struct {
	BusID     string    `json:"busId"`
	Seats     []string  `json:"seats"`
	ExpiresAt time.Time `json:"expiresAt"`
}
