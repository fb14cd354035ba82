// Package relay fans Kafka events out to WebSocket subscribers.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"smartbus-service/internal/events"
	"smartbus-service/internal/tracking"
	"smartbus-service/pkg/kafka"
)

// Subscriber is implemented by *kafka.Client.
type Subscriber interface {
	Subscribe(ctx context.Context, topic, groupID string, handler func([]byte) error)
}

// Broadcaster is implemented by *tracking.Hub.
type Broadcaster interface {
	Broadcast(channel, msgType string, data any)
}

// Relay consumes booking, RFID and telemetry topics and forwards each event
// to the matching hub channels.
type Relay struct {
	sub     Subscriber
	hub     Broadcaster
	groupID string
}

// New creates a relay. Every service instance needs its own groupID so each
// one sees the full stream.
func New(sub Subscriber, hub Broadcaster, groupID string) *Relay {
	return &Relay{sub: sub, hub: hub, groupID: groupID}
}

// Start begins consuming in background goroutines until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) {
	r.sub.Subscribe(ctx, kafka.TopicIoTTelemetry, r.groupID, r.telemetry)
	r.sub.Subscribe(ctx, kafka.TopicRFIDEvents, r.groupID, r.rfid)
	r.sub.Subscribe(ctx, kafka.TopicBookingCreated, r.groupID, r.bookingCreated)
	r.sub.Subscribe(ctx, kafka.TopicBookingCancelled, r.groupID, r.bookingCancelled)
	log.Printf("[relay] consuming as %s", r.groupID)
}

func (r *Relay) telemetry(data []byte) error {
	var ev events.TelemetryEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("decode telemetry: %w", err)
	}
	r.hub.Broadcast(tracking.ChannelFleet, "telemetry", ev)
	r.hub.Broadcast(tracking.BusChannel(ev.BusID), "telemetry", ev)
	return nil
}

func (r *Relay) rfid(data []byte) error {
	var ev events.RFIDScanEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("decode rfid event: %w", err)
	}
	r.hub.Broadcast(tracking.ChannelFleet, "rfid", ev)
	r.hub.Broadcast(tracking.BusChannel(ev.BusID), "rfid", ev)
	return nil
}

func (r *Relay) bookingCreated(data []byte) error {
	var ev events.BookingCreatedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("decode booking.created: %w", err)
	}
	log.Printf("[relay] booking.created → booking=%s bus=%s seats=%d", ev.BookingID, ev.BusID, len(ev.Seats))
	r.hub.Broadcast(tracking.ChannelBookings, "booking.created", ev)
	r.hub.Broadcast(tracking.UserChannel(ev.UserID), "booking.created", ev)
	r.hub.Broadcast(tracking.BusChannel(ev.BusID), "seats.booked", ev.Seats)
	return nil
}

func (r *Relay) bookingCancelled(data []byte) error {
	var ev events.BookingCancelledEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("decode booking.cancelled: %w", err)
	}
	log.Printf("[relay] booking.cancelled → booking=%s bus=%s", ev.BookingID, ev.BusID)
	r.hub.Broadcast(tracking.ChannelBookings, "booking.cancelled", ev)
	r.hub.Broadcast(tracking.UserChannel(ev.UserID), "booking.cancelled", ev)
	r.hub.Broadcast(tracking.BusChannel(ev.BusID), "seats.released", ev.Seats)
	return nil
}
