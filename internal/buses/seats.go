package buses

import (
	"math"
	"strconv"
)

// seatsPerRow is the coach layout used to generate labels: 1A 1B 1C 1D 2A ...
const seatsPerRow = 4

// Availability derives free seats and occupancy percentage from the number
// of booked labels. An oversold bus reports 0 free seats and 100 %.
func Availability(capacity, booked int) (available, occupancy int) {
	if capacity <= 0 {
		return 0, 0
	}
	available = capacity - booked
	if available < 0 {
		available = 0
	}
	occupancy = int(math.Round(float64(booked) / float64(capacity) * 100))
	if occupancy > 100 {
		occupancy = 100
	}
	if occupancy < 0 {
		occupancy = 0
	}
	return available, occupancy
}

// SeatLabels generates capacity labels in row-major order.
func SeatLabels(capacity int) []string {
	labels := make([]string, 0, max(capacity, 0))
	for i := 0; i < capacity; i++ {
		row := i/seatsPerRow + 1
		col := byte('A' + i%seatsPerRow)
		labels = append(labels, strconv.Itoa(row)+string(col))
	}
	return labels
}

// BuildSeatMap marks each generated label as booked, held or available.
// held maps a label to its holder; only presence matters here.
func BuildSeatMap(b *Bus, booked []string, held map[string]string) SeatMap {
	bookedSet := make(map[string]struct{}, len(booked))
	for _, s := range booked {
		bookedSet[s] = struct{}{}
	}

	labels := SeatLabels(b.Capacity)
	seats := make([]Seat, 0, len(labels))
	free := 0
	for _, l := range labels {
		status := SeatAvailable
		if _, ok := bookedSet[l]; ok {
			status = SeatBooked
		} else if _, ok := held[l]; ok {
			status = SeatHeld
		} else {
			free++
		}
		seats = append(seats, Seat{Label: l, Status: status})
	}
	return SeatMap{BusID: b.ID, Capacity: b.Capacity, AvailableSeats: free, Seats: seats}
}
