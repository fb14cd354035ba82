package buses

import (
	"context"
	"log"
)

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	List(ctx context.Context, f Filter) ([]Bus, error)
	Get(ctx context.Context, id string) (*Bus, error)
	BookedSeats(ctx context.Context, busIDs ...string) (map[string][]string, error)
}

// HoldReader reports which seats of a bus are temporarily held and by whom.
type HoldReader interface {
	SeatHolders(ctx context.Context, busID string, seats []string) (map[string]string, error)
}

// Service answers availability questions. Nothing is cached; every call
// reads the current confirmed bookings.
type Service struct {
	store Store
	holds HoldReader
}

// NewService creates a bus service. holds may be nil, in which case seat
// maps never report held seats.
func NewService(store Store, holds HoldReader) *Service {
	return &Service{store: store, holds: holds}
}

// List returns buses matching f with availability. The date is accepted for
// compatibility and ignored.
func (s *Service) List(ctx context.Context, f Filter) ([]Listing, error) {
	all, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(all))
	for i, b := range all {
		ids[i] = b.ID
	}
	booked, err := s.store.BookedSeats(ctx, ids...)
	if err != nil {
		return nil, err
	}

	out := make([]Listing, 0, len(all))
	for _, b := range all {
		avail, occ := Availability(b.Capacity, len(booked[b.ID]))
		out = append(out, Listing{Bus: b, AvailableSeats: avail, Occupancy: occ})
	}
	return out, nil
}

// Lookup loads a bus together with the flattened labels of its confirmed
// bookings.
func (s *Service) Lookup(ctx context.Context, id string) (*Bus, []string, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	booked, err := s.store.BookedSeats(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return b, booked[id], nil
}

func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	b, booked, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if booked == nil {
		booked = []string{}
	}
	avail, occ := Availability(b.Capacity, len(booked))
	return &Detail{Bus: *b, AvailableSeats: avail, BookedSeats: booked, Occupancy: occ}, nil
}

// SeatMap reports every seat of the bus. Hold lookups failing degrade to a
// map without held seats.
func (s *Service) SeatMap(ctx context.Context, id string) (*SeatMap, error) {
	b, booked, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	var held map[string]string
	if s.holds != nil {
		held, err = s.holds.SeatHolders(ctx, id, SeatLabels(b.Capacity))
		if err != nil {
			log.Printf("[buses] seat holds for %s unavailable: %v", id, err)
			held = nil
		}
	}
	m := BuildSeatMap(b, booked, held)
	return &m, nil
}
