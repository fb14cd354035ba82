package fleet

import (
	"context"
	"log"
	"time"

	"smartbus-service/internal/events"
	"smartbus-service/pkg/kafka"
)

// BatchPublisher is implemented by *kafka.Client.
type BatchPublisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
	PublishBatch(ctx context.Context, topic string, msgs []kafka.Message) error
}

// KafkaSink publishes telemetry to iot.telemetry and scans to rfid.events,
// keyed by bus code.
type KafkaSink struct {
	pub BatchPublisher
}

func NewKafkaSink(pub BatchPublisher) *KafkaSink { return &KafkaSink{pub: pub} }

func (k *KafkaSink) Telemetry(ctx context.Context, buses []LiveBus) {
	msgs := make([]kafka.Message, 0, len(buses))
	for _, b := range buses {
		msgs = append(msgs, kafka.Message{Key: b.Code, Value: telemetryEvent(b)})
	}
	if err := k.pub.PublishBatch(ctx, kafka.TopicIoTTelemetry, msgs); err != nil {
		log.Printf("[fleet] publish telemetry (%d buses): %v", len(msgs), err)
	}
}

func (k *KafkaSink) RFID(ctx context.Context, ev RFIDEvent) {
	if err := k.pub.Publish(ctx, kafka.TopicRFIDEvents, ev.BusCode, scanEvent(ev)); err != nil {
		log.Printf("[fleet] publish rfid event %s: %v", ev.ID, err)
	}
}

func telemetryEvent(b LiveBus) events.TelemetryEvent {
	return events.TelemetryEvent{
		BusID:       b.Code,
		Occupancy:   b.Occupancy,
		Capacity:    b.Capacity,
		Temperature: b.Temperature,
		Humidity:    b.Humidity,
		Vibration:   b.Vibration,
		FuelLevel:   b.FuelLevel,
		Speed:       b.Speed,
		Location:    events.LatLng{Lat: b.Location.Latitude, Lng: b.Location.Longitude},
		Timestamp:   b.LastUpdate.UTC().Format(time.RFC3339),
	}
}

func scanEvent(ev RFIDEvent) events.RFIDScanEvent {
	status := "failed"
	if ev.Success {
		status = "success"
	}
	return events.RFIDScanEvent{
		ID:          ev.ID,
		BusID:       ev.BusCode,
		PassengerID: ev.PassengerID,
		EventType:   ev.EventType,
		Status:      status,
		ReaderID:    ev.ReaderID,
		Location:    ev.Location,
		Timestamp:   ev.EventTime.UTC().Format(time.RFC3339),
	}
}
