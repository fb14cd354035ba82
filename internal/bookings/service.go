package bookings

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"smartbus-service/internal/buses"
	"smartbus-service/internal/domain"
	"smartbus-service/internal/events"
	"smartbus-service/pkg/kafka"
	"smartbus-service/pkg/validation"
)

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	Insert(ctx context.Context, b *Booking) error
	ListByUser(ctx context.Context, userID string) ([]Booking, error)
	GetForUser(ctx context.Context, id, userID string) (*Booking, error)
	GetByPNR(ctx context.Context, pnr string) (*Booking, error)
	Cancel(ctx context.Context, id, userID string) (bool, error)
}

// BusLookup loads a bus with the labels of its confirmed bookings.
type BusLookup interface {
	Lookup(ctx context.Context, id string) (*buses.Bus, []string, error)
}

// SeatHolds is the temporary seat reservation store (Redis).
type SeatHolds interface {
	HoldSeats(ctx context.Context, busID, holder string, seats []string, ttl time.Duration) ([]string, error)
	ReleaseSeats(ctx context.Context, busID, holder string, seats []string) error
	SeatHolders(ctx context.Context, busID string, seats []string) (map[string]string, error)
}

// Publisher sends events to the message bus.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

var errHoldsDisabled = errors.New("seat holds are not configured")

// Service contains booking business logic.
type Service struct {
	store   Store
	buses   BusLookup
	holds   SeatHolds
	pub     Publisher
	holdTTL time.Duration
}

// NewService creates a booking service.
func NewService(store Store, bl BusLookup, holds SeatHolds, pub Publisher, holdTTL time.Duration) *Service {
	return &Service{store: store, buses: bl, holds: holds, pub: pub, holdTTL: holdTTL}
}

// Create books the requested seats for userID. Any unavailable seat rejects
// the whole request. The availability check and the insert are not atomic;
// two concurrent requests for the same seat can both succeed.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Booking, error) {
	req.BusID = strings.TrimSpace(req.BusID)
	req.PassengerName = strings.TrimSpace(req.PassengerName)
	req.PassengerEmail = strings.TrimSpace(req.PassengerEmail)
	req.PassengerPhone = strings.TrimSpace(req.PassengerPhone)
	req.Seats = normalizeSeats(req.Seats)

	var errs validation.Errors
	errs.Check(req.BusID != "", "busId", "busId is required")
	if ok, msg := validation.ValidateSeats(req.Seats); !ok {
		errs.Check(false, "seats", msg)
	}
	errs.Check(validation.ValidateName(req.PassengerName), "passengerName", "passenger name must be at least 2 characters")
	errs.Check(validation.ValidateEmail(req.PassengerEmail), "passengerEmail", "a valid email is required")
	errs.Check(validation.ValidatePhone(req.PassengerPhone), "passengerPhone", "a valid mobile number is required")
	errs.Check(validation.ValidateDate(req.TravelDate), "travelDate", "travel date must be YYYY-MM-DD")
	if !errs.Empty() {
		return nil, domain.ValidationError{Fields: errs}
	}

	bus, booked, err := s.buses.Lookup(ctx, req.BusID)
	if err != nil {
		return nil, err
	}

	if len(booked)+len(req.Seats) > bus.Capacity {
		return nil, domain.ConflictError{Msg: "Not enough seats available"}
	}
	if err := checkLayout(bus, req.Seats); err != nil {
		return nil, err
	}
	if unavailable := s.unavailable(ctx, userID, req.BusID, req.Seats, booked); len(unavailable) > 0 {
		return nil, domain.ConflictError{Msg: "Some seats are no longer available", Items: unavailable}
	}

	b := &Booking{
		ID:             uuid.New().String(),
		PNR:            NewPNR(),
		UserID:         userID,
		BusID:          bus.ID,
		Seats:          req.Seats,
		PassengerName:  req.PassengerName,
		PassengerEmail: req.PassengerEmail,
		PassengerPhone: req.PassengerPhone,
		TravelDate:     req.TravelDate,
		TotalPrice:     bus.Price * float64(len(req.Seats)),
		Status:         StatusConfirmed,
	}
	if err := s.store.Insert(ctx, b); err != nil {
		return nil, err
	}
	b.Bus = &BusSummary{Name: bus.Name, From: bus.From, To: bus.To,
		DepartureTime: bus.DepartureTime, ArrivalTime: bus.ArrivalTime}

	if s.holds != nil {
		if err := s.holds.ReleaseSeats(ctx, b.BusID, userID, b.Seats); err != nil {
			log.Printf("[bookings] release holds for %s: %v", b.ID, err)
		}
	}

	// Async Kafka publish
	ev := events.BookingCreatedEvent{
		BookingID:  b.ID,
		PNR:        b.PNR,
		UserID:     userID,
		BusID:      b.BusID,
		Seats:      b.Seats,
		TotalPrice: b.TotalPrice,
		TravelDate: b.TravelDate,
		CreatedAt:  b.CreatedAt.Format(time.RFC3339),
	}
	s.publish(kafka.TopicBookingCreated, b.ID, ev)

	log.Printf("[bookings] booking %s (%s) created on %s for %d seat(s)", b.ID, b.PNR, b.BusID, len(b.Seats))
	return b, nil
}

// unavailable lists the requested seats that are booked, or held by someone
// other than userID. A hold lookup failure only skips the hold check.
func (s *Service) unavailable(ctx context.Context, userID, busID string, seats, booked []string) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, seat := range booked {
		taken[seat] = struct{}{}
	}
	var holders map[string]string
	if s.holds != nil {
		var err error
		if holders, err = s.holds.SeatHolders(ctx, busID, seats); err != nil {
			log.Printf("[bookings] seat holds for %s unavailable: %v", busID, err)
		}
	}

	var out []string
	for _, seat := range seats {
		if _, ok := taken[seat]; ok {
			out = append(out, seat)
			continue
		}
		if h, ok := holders[seat]; ok && h != userID {
			out = append(out, seat)
		}
	}
	return out
}

// List returns the caller's bookings newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Booking, error) {
	return s.store.ListByUser(ctx, userID)
}

// Get returns a booking owned by userID. Foreign and malformed ids are
// reported as not found.
func (s *Service) Get(ctx context.Context, id, userID string) (*Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NotFoundError{Resource: "Booking"}
	}
	return s.store.GetForUser(ctx, id, userID)
}

// Cancel marks the caller's confirmed booking cancelled, freeing its seats.
func (s *Service) Cancel(ctx context.Context, id, userID string) error {
	b, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	ok, err := s.store.Cancel(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFoundError{Resource: "Booking"}
	}

	ev := events.BookingCancelledEvent{
		BookingID:   b.ID,
		UserID:      userID,
		BusID:       b.BusID,
		Seats:       b.Seats,
		CancelledAt: time.Now().Format(time.RFC3339),
	}
	s.publish(kafka.TopicBookingCancelled, b.ID, ev)

	log.Printf("[bookings] booking %s cancelled", b.ID)
	return nil
}

// Hold reserves seats for userID for the configured TTL. Seats that are
// booked or held by someone else are reported and nothing is held.
func (s *Service) Hold(ctx context.Context, userID string, req HoldRequest) (*Hold, error) {
	req.Seats = normalizeSeats(req.Seats)
	if err := validateHold(req); err != nil {
		return nil, err
	}
	if s.holds == nil {
		return nil, errHoldsDisabled
	}
	bus, booked, err := s.buses.Lookup(ctx, req.BusID)
	if err != nil {
		return nil, err
	}
	if err := checkLayout(bus, req.Seats); err != nil {
		return nil, err
	}

	taken := make(map[string]struct{}, len(booked))
	for _, seat := range booked {
		taken[seat] = struct{}{}
	}
	var conflicts []string
	for _, seat := range req.Seats {
		if _, ok := taken[seat]; ok {
			conflicts = append(conflicts, seat)
		}
	}
	if len(conflicts) > 0 {
		return nil, domain.ConflictError{Msg: "Some seats are no longer available", Items: conflicts}
	}

	conflicts, err = s.holds.HoldSeats(ctx, req.BusID, userID, req.Seats, s.holdTTL)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, domain.ConflictError{Msg: "Some seats are no longer available", Items: conflicts}
	}
	return &Hold{BusID: req.BusID, Seats: req.Seats, ExpiresAt: time.Now().Add(s.holdTTL)}, nil
}

// Release drops the caller's holds. Seats held by others are untouched.
func (s *Service) Release(ctx context.Context, userID string, req HoldRequest) error {
	req.Seats = normalizeSeats(req.Seats)
	if err := validateHold(req); err != nil {
		return err
	}
	if s.holds == nil {
		return errHoldsDisabled
	}
	return s.holds.ReleaseSeats(ctx, req.BusID, userID, req.Seats)
}

// ValidateTicket reports whether ticket is the PNR of a confirmed booking
// on busID.
func (s *Service) ValidateTicket(ctx context.Context, busID, ticket string) (bool, error) {
	b, err := s.store.GetByPNR(ctx, strings.ToUpper(strings.TrimSpace(ticket)))
	if domain.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return b.Status == StatusConfirmed && b.BusID == busID, nil
}

func validateHold(req HoldRequest) error {
	var errs validation.Errors
	errs.Check(strings.TrimSpace(req.BusID) != "", "busId", "busId is required")
	if ok, msg := validation.ValidateSeats(req.Seats); !ok {
		errs.Check(false, "seats", msg)
	}
	if !errs.Empty() {
		return domain.ValidationError{Fields: errs}
	}
	return nil
}

// normalizeSeats trims and upper-cases labels so "1a" and "1A" name the
// same seat.
func normalizeSeats(seats []string) []string {
	out := make([]string, len(seats))
	for i, seat := range seats {
		out[i] = strings.ToUpper(strings.TrimSpace(seat))
	}
	return out
}

// checkLayout rejects labels that are not part of the bus's seat map.
func checkLayout(bus *buses.Bus, seats []string) error {
	layout := make(map[string]struct{}, bus.Capacity)
	for _, label := range buses.SeatLabels(bus.Capacity) {
		layout[label] = struct{}{}
	}
	var errs validation.Errors
	for _, seat := range seats {
		_, ok := layout[seat]
		errs.Check(ok, "seats", "seat "+seat+" does not exist on this bus")
	}
	if !errs.Empty() {
		return domain.ValidationError{Fields: errs}
	}
	return nil
}

func (s *Service) publish(topic, key string, ev any) {
	if s.pub == nil {
		return
	}
	go func() {
		if err := s.pub.Publish(context.Background(), topic, key, ev); err != nil {
			log.Printf("[bookings] failed to publish %s: %v", topic, err)
		}
	}()
}

// NewPNR returns a display reference: "PNR" followed by 8 upper-case
// alphanumerics.
func NewPNR() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "PNR" + strings.ToUpper(id[:8])
}
