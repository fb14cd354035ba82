package bookings

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
)

// RenderTicket draws a one-page A4 e-ticket for b. b.Bus must be set.
func RenderTicket(b *Booking) ([]byte, error) {
	bus := b.Bus
	if bus == nil {
		bus = &BusSummary{}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket "+b.PNR, false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "SMARTBUS2+ E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "PNR: "+b.PNR)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Booking ID : " + b.ID,
		"Status     : " + strings.ToUpper(b.Status),
		"Bus        : " + safe(bus.Name, b.BusID),
		"Route      : " + safe(bus.From, "-") + " -> " + safe(bus.To, "-"),
		"Departure  : " + safe(bus.DepartureTime, "-"),
		"Arrival    : " + safe(bus.ArrivalTime, "-"),
		"Travel date: " + safe(b.TravelDate, "daily service"),
		"Seats      : " + strings.Join(b.Seats, ", "),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Passenger")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
	for _, s := range []string{
		"Name  : " + b.PassengerName,
		"Email : " + b.PassengerEmail,
		"Phone : " + b.PassengerPhone,
	} {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total: INR %.2f", b.TotalPrice))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, fmt.Sprintf(
		"Booked on %s. Present the PNR at the RFID reader when boarding.",
		b.CreatedAt.Format(time.RFC1123)), "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render ticket: %w", err)
	}
	return buf.Bytes(), nil
}

func safe(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
