package reviews

import "time"

// Review is a passenger's rating of a completed journey. Sub-ratings of 0
// mean "not rated".
type Review struct {
	ID                string    `json:"id"`
	BookingID         string    `json:"bookingId"`
	BusID             string    `json:"busId"`
	UserID            string    `json:"userId"`
	PassengerName     string    `json:"passengerName"`
	Rating            int       `json:"rating"`
	Title             string    `json:"title"`
	Comment           string    `json:"comment"`
	ComfortRating     int       `json:"comfortRating"`
	CleanlinessRating int       `json:"cleanlinessRating"`
	PunctualityRating int       `json:"punctualityRating"`
	DriverRating      int       `json:"driverRating"`
	AmenitiesRating   int       `json:"amenitiesRating"`
	WouldRecommend    bool      `json:"wouldRecommend"`
	CreatedAt         time.Time `json:"createdAt"`
}

// CreateRequest is the body for POST /api/reviews.
type CreateRequest struct {
	BookingID         string `json:"bookingId"`
	Rating            int    `json:"rating"`
	Title             string `json:"title"`
	Comment           string `json:"comment"`
	ComfortRating     int    `json:"comfortRating"`
	CleanlinessRating int    `json:"cleanlinessRating"`
	PunctualityRating int    `json:"punctualityRating"`
	DriverRating      int    `json:"driverRating"`
	AmenitiesRating   int    `json:"amenitiesRating"`
	WouldRecommend    bool   `json:"wouldRecommend"`
}

// BusReviews is the listing for one bus.
type BusReviews struct {
	BusID         string   `json:"busId"`
	AverageRating float64  `json:"averageRating"`
	Count         int      `json:"count"`
	Reviews       []Review `json:"reviews"`
}
