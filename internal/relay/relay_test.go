package relay

import (
	"context"
	"encoding/json"
	"testing"

	"smartbus-service/internal/events"
	"smartbus-service/pkg/kafka"
)

type fakeSub struct {
	handlers map[string]func([]byte) error
	groups   map[string]string
}

func (f *fakeSub) Subscribe(_ context.Context, topic, groupID string, h func([]byte) error) {
	f.handlers[topic] = h
	f.groups[topic] = groupID
}

type sent struct{ channel, kind string }

type fakeHub struct{ got []sent }

func (f *fakeHub) Broadcast(channel, msgType string, _ any) {
	f.got = append(f.got, sent{channel, msgType})
}

func setup(t *testing.T) (*fakeSub, *fakeHub) {
	t.Helper()
	sub := &fakeSub{handlers: map[string]func([]byte) error{}, groups: map[string]string{}}
	hub := &fakeHub{}
	New(sub, hub, "relay-test").Start(context.Background())
	return sub, hub
}

func deliver(t *testing.T, sub *fakeSub, topic string, v any) error {
	t.Helper()
	h, ok := sub.handlers[topic]
	if !ok {
		t.Fatalf("no subscription for %s", topic)
	}
	data, _ := json.Marshal(v)
	return h(data)
}

func TestStartSubscribesEveryTopic(t *testing.T) {
	sub, _ := setup(t)
	for _, topic := range kafka.Topics {
		if sub.groups[topic] != "relay-test" {
			t.Fatalf("topic %s group = %q", topic, sub.groups[topic])
		}
	}
}

func TestRouting(t *testing.T) {
	tests := []struct {
		topic string
		ev    any
		want  []sent
	}{
		{
			kafka.TopicIoTTelemetry,
			events.TelemetryEvent{BusID: "SB004", Occupancy: 10},
			[]sent{{"fleet", "telemetry"}, {"bus:SB004", "telemetry"}},
		},
		{
			kafka.TopicRFIDEvents,
			events.RFIDScanEvent{ID: "e1", BusID: "SB007"},
			[]sent{{"fleet", "rfid"}, {"bus:SB007", "rfid"}},
		},
		{
			kafka.TopicBookingCreated,
			events.BookingCreatedEvent{BookingID: "b1", UserID: "u1", BusID: "SB001", Seats: []string{"1A"}},
			[]sent{{"bookings", "booking.created"}, {"user:u1", "booking.created"}, {"bus:SB001", "seats.booked"}},
		},
		{
			kafka.TopicBookingCancelled,
			events.BookingCancelledEvent{BookingID: "b1", UserID: "u1", BusID: "SB001"},
			[]sent{{"bookings", "booking.cancelled"}, {"user:u1", "booking.cancelled"}, {"bus:SB001", "seats.released"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			sub, hub := setup(t)
			if err := deliver(t, sub, tt.topic, tt.ev); err != nil {
				t.Fatal(err)
			}
			if len(hub.got) != len(tt.want) {
				t.Fatalf("broadcasts = %v, want %v", hub.got, tt.want)
			}
			for i := range tt.want {
				if hub.got[i] != tt.want[i] {
					t.Fatalf("broadcast %d = %v, want %v", i, hub.got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMalformedPayload(t *testing.T) {
	sub, hub := setup(t)
	if err := sub.handlers[kafka.TopicBookingCreated]([]byte("{")); err == nil {
		t.Fatal("expected decode error")
	}
	if len(hub.got) != 0 {
		t.Fatalf("broadcast on bad payload: %v", hub.got)
	}
}
