package reviews

import (
	"context"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"

	"smartbus-service/internal/bookings"
	"smartbus-service/internal/domain"
	"smartbus-service/pkg/validation"
)

const errAlreadyReviewed = "Booking already reviewed"

const maxTitle = 200

// Store is implemented by *Repository.
type Store interface {
	Insert(ctx context.Context, rv *Review) error
	ExistsForBooking(ctx context.Context, bookingID string) (bool, error)
	ListByBus(ctx context.Context, busID string) ([]Review, error)
	ListByUser(ctx context.Context, userID string) ([]Review, error)
}

// BookingLookup returns a booking owned by a user; *bookings.Service
// implements it.
type BookingLookup interface {
	Get(ctx context.Context, id, userID string) (*bookings.Booking, error)
}

type Service struct {
	store    Store
	bookings BookingLookup
}

func NewService(store Store, bl BookingLookup) *Service {
	return &Service{store: store, bookings: bl}
}

// Create records a review of the caller's confirmed booking. Each booking
// can be reviewed once.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Review, error) {
	req.BookingID = strings.TrimSpace(req.BookingID)
	req.Title = strings.TrimSpace(req.Title)
	req.Comment = strings.TrimSpace(req.Comment)

	var errs validation.Errors
	errs.Check(req.BookingID != "", "bookingId", "bookingId is required")
	errs.Check(validation.ValidateRating(req.Rating), "rating", "rating must be between 1 and 5")
	errs.Check(len(req.Title) <= maxTitle, "title", "title must be at most 200 characters")
	for _, sub := range []struct {
		field string
		v     int
	}{
		{"comfortRating", req.ComfortRating},
		{"cleanlinessRating", req.CleanlinessRating},
		{"punctualityRating", req.PunctualityRating},
		{"driverRating", req.DriverRating},
		{"amenitiesRating", req.AmenitiesRating},
	} {
		errs.Check(validation.ValidateSubRating(sub.v), sub.field, sub.field+" must be between 0 and 5")
	}
	if !errs.Empty() {
		return nil, domain.ValidationError{Fields: errs}
	}

	b, err := s.bookings.Get(ctx, req.BookingID, userID)
	if err != nil {
		return nil, err
	}
	if b.Status != bookings.StatusConfirmed {
		return nil, domain.ConflictError{Msg: "Only confirmed bookings can be reviewed"}
	}
	exists, err := s.store.ExistsForBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ConflictError{Msg: errAlreadyReviewed}
	}

	rv := &Review{
		ID:                uuid.NewString(),
		BookingID:         b.ID,
		BusID:             b.BusID,
		UserID:            userID,
		PassengerName:     b.PassengerName,
		Rating:            req.Rating,
		Title:             req.Title,
		Comment:           req.Comment,
		ComfortRating:     req.ComfortRating,
		CleanlinessRating: req.CleanlinessRating,
		PunctualityRating: req.PunctualityRating,
		DriverRating:      req.DriverRating,
		AmenitiesRating:   req.AmenitiesRating,
		WouldRecommend:    req.WouldRecommend,
	}
	if err := s.store.Insert(ctx, rv); err != nil {
		return nil, err
	}
	log.Printf("[reviews] booking %s rated %d by %s", b.ID, rv.Rating, userID)
	return rv, nil
}

// ForBus lists a bus's reviews with their average rating, rounded to one
// decimal (0 when there are none).
func (s *Service) ForBus(ctx context.Context, busID string) (*BusReviews, error) {
	busID = strings.TrimSpace(busID)
	if busID == "" {
		return nil, domain.ValidationError{Fields: validation.Errors{{Field: "busId", Msg: "busId is required"}}}
	}
	list, err := s.store.ListByBus(ctx, busID)
	if err != nil {
		return nil, err
	}
	return &BusReviews{
		BusID:         busID,
		AverageRating: average(list),
		Count:         len(list),
		Reviews:       list,
	}, nil
}

func (s *Service) Mine(ctx context.Context, userID string) ([]Review, error) {
	return s.store.ListByUser(ctx, userID)
}

func average(list []Review) float64 {
	if len(list) == 0 {
		return 0
	}
	sum := 0
	for _, rv := range list {
		sum += rv.Rating
	}
	return math.Round(float64(sum)/float64(len(list))*10) / 10
}
