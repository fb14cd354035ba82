package bookings

import (
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// travelZone is where every bus in the network runs.
var travelZone = loadTravelZone()

func loadTravelZone() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("IST", 5*3600+30*60)
	}
	return loc
}

// WriteCalendar writes an iCalendar file with one event spanning the
// journey. Without a travel date the journey is placed on the day of
// booking; an arrival earlier than departure rolls over to the next day.
func WriteCalendar(b *Booking, w io.Writer) error {
	if b.Bus == nil {
		return fmt.Errorf("booking %s has no bus details", b.ID)
	}
	start, end, err := journeyWindow(b)
	if err != nil {
		return err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//SmartBus2+//Bookings//EN")

	now := time.Now()
	event := cal.AddEvent(b.ID + "@smartbus")
	event.SetCreatedTime(b.CreatedAt)
	event.SetDtStampTime(now)
	event.SetModifiedAt(now)
	event.SetStartAt(start)
	event.SetEndAt(end)
	event.SetSummary(fmt.Sprintf("%s: %s to %s", b.Bus.Name, b.Bus.From, b.Bus.To))
	event.SetLocation(b.Bus.From)
	event.SetDescription(fmt.Sprintf("PNR: %s\nSeats: %s\nPassenger: %s",
		b.PNR, strings.Join(b.Seats, ", "), b.PassengerName))
	if b.Status == StatusCancelled {
		event.SetStatus(ics.ObjectStatusCancelled)
	} else {
		event.SetStatus(ics.ObjectStatusConfirmed)
	}

	return cal.SerializeTo(w)
}

func journeyWindow(b *Booking) (start, end time.Time, err error) {
	date := b.TravelDate
	if date == "" {
		date = b.CreatedAt.In(travelZone).Format("2006-01-02")
	}
	const layout = "2006-01-02 15:04"
	start, err = time.ParseInLocation(layout, date+" "+b.Bus.DepartureTime, travelZone)
	if err != nil {
		return start, end, fmt.Errorf("departure time: %w", err)
	}
	end, err = time.ParseInLocation(layout, date+" "+b.Bus.ArrivalTime, travelZone)
	if err != nil {
		return start, end, fmt.Errorf("arrival time: %w", err)
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}
