package fleet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"smartbus-service/internal/events"
	"smartbus-service/pkg/jwt"
	"smartbus-service/pkg/kafka"
)

func init() {
	if err := jwt.Init("test-secret"); err != nil {
		panic(err)
	}
}

type ticketSet map[string]string // ticket -> bus code

func (t ticketSet) ValidateTicket(_ context.Context, busID, ticket string) (bool, error) {
	return t[ticket] == busID, nil
}

func newTestServer(t *testing.T, sim *Simulator) *httptest.Server {
	t.Helper()
	h := NewHandler(sim, ticketSet{"PNR1A2B3C4D": "SB005"})
	r := chi.NewRouter()
	r.Mount("/api/iot", h.IoTRoutes())
	r.Mount("/api/rfid", h.RFIDRoutes())
	r.Mount("/api/fleet", h.FleetRoutes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, dst any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func scan(t *testing.T, srv *httptest.Server, token, body string) (*http.Response, RFIDEvent) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/rfid/scan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var ev RFIDEvent
	json.NewDecoder(resp.Body).Decode(&ev)
	return resp, ev
}

func TestFleetEndpoints(t *testing.T) {
	sim := newTestSim(t, nil)
	sim.Tick()
	srv := newTestServer(t, sim)

	var buses []LiveBus
	if code := getJSON(t, srv.URL+"/api/fleet/buses", &buses); code != http.StatusOK || len(buses) != 90 {
		t.Fatalf("fleet buses: %d, %d entries", code, len(buses))
	}

	var raw map[string]any
	getJSON(t, srv.URL+"/api/fleet/stats", &raw)
	for _, k := range []string{"totalBuses", "activeRoutes", "todayPassengers", "iotSensors", "totalRevenue", "energyEfficiency", "greenScore"} {
		if _, ok := raw[k]; !ok {
			t.Fatalf("stats missing %q: %v", k, raw)
		}
	}

	var feed []map[string]any
	getJSON(t, srv.URL+"/api/iot/data", &feed)
	if len(feed) != 20 {
		t.Fatalf("iot data has %d records", len(feed))
	}
	loc, ok := feed[0]["location"].(map[string]any)
	if !ok || loc["latitude"] == nil || loc["longitude"] == nil {
		t.Fatalf("record location = %v", feed[0]["location"])
	}

	var rd IoTReading
	if code := getJSON(t, srv.URL+"/api/iot/bus/1", &rd); code != http.StatusOK || rd.BusCode != "SB001" {
		t.Fatalf("iot bus: %d %+v", code, rd)
	}

	var body map[string]string
	if code := getJSON(t, srv.URL+"/api/iot/bus/SB500", &body); code != http.StatusNotFound || body["error"] != "Bus not found" {
		t.Fatalf("unknown bus: %d %v", code, body)
	}
	if code := getJSON(t, srv.URL+"/api/rfid/events?busId=nope", &body); code != http.StatusNotFound {
		t.Fatalf("events for unknown bus: %d", code)
	}
}

func TestScanEndpoint(t *testing.T) {
	sim := newTestSim(t, nil)
	sim.buses[4].Occupancy = 0
	srv := newTestServer(t, sim)

	resp, _ := scan(t, srv, "", `{"busId":"SB005","ticketId":"PNR1A2B3C4D"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated scan: %d", resp.StatusCode)
	}

	token, _ := jwt.Generate("reader-1", "gate@example.com", jwt.RolePassenger)

	resp, ev := scan(t, srv, token, `{"busId":"5","ticketId":"PNR1A2B3C4D","readerId":"GATE_5"}`)
	if resp.StatusCode != http.StatusCreated || ev.EventType != EventBoarding || !ev.Success || ev.ReaderID != "GATE_5" {
		t.Fatalf("valid scan: %d %+v", resp.StatusCode, ev)
	}

	// Right ticket, wrong bus.
	_, ev = scan(t, srv, token, `{"busId":"SB006","ticketId":"PNR1A2B3C4D"}`)
	if ev.EventType != EventScanFailed || ev.Success {
		t.Fatalf("foreign ticket: %+v", ev)
	}

	resp, _ = scan(t, srv, token, `{"busId":"","ticketId":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty scan: %d", resp.StatusCode)
	}
	resp, _ = scan(t, srv, token, `{"busId":"SB777","ticketId":"x"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown bus scan: %d", resp.StatusCode)
	}

	var st BoardingStatus
	getJSON(t, srv.URL+"/api/rfid/boarding-status/SB005", &st)
	if st.TotalScans != 1 || st.Boarded != 1 || st.Occupancy != 1 {
		t.Fatalf("boarding status = %+v", st)
	}

	var evs []RFIDEvent
	getJSON(t, srv.URL+"/api/rfid/events", &evs)
	if len(evs) != 2 || evs[0].BusCode != "SB006" {
		t.Fatalf("events = %+v", evs)
	}
}

type batchRecorder struct {
	batches map[string][]kafka.Message
	single  map[string][]any
}

func (b *batchRecorder) Publish(_ context.Context, topic, key string, value any) error {
	b.single[topic] = append(b.single[topic], value)
	return nil
}

func (b *batchRecorder) PublishBatch(_ context.Context, topic string, msgs []kafka.Message) error {
	b.batches[topic] = append(b.batches[topic], msgs...)
	return nil
}

func TestKafkaSink(t *testing.T) {
	rec := &batchRecorder{batches: map[string][]kafka.Message{}, single: map[string][]any{}}
	sink := NewKafkaSink(rec)

	sim := newTestSim(t, nil)
	res := sim.Tick()
	sink.Telemetry(context.Background(), res.Active)

	msgs := rec.batches[kafka.TopicIoTTelemetry]
	if len(msgs) != len(res.Active) || msgs[0].Key != "SB001" {
		t.Fatalf("telemetry batch: %d messages", len(msgs))
	}
	te := msgs[0].Value.(events.TelemetryEvent)
	if te.BusID != "SB001" || te.Capacity != res.Active[0].Capacity || te.Location.Lat == 0 {
		t.Fatalf("telemetry event = %+v", te)
	}

	ev, _ := sim.RecordScan(context.Background(), ScanRequest{BusID: "SB002", TicketID: "t"}, false)
	sink.RFID(context.Background(), ev)
	got := rec.single[kafka.TopicRFIDEvents]
	if len(got) != 1 {
		t.Fatalf("rfid publishes = %d", len(got))
	}
	se := got[0].(events.RFIDScanEvent)
	if se.BusID != "SB002" || se.Status != "failed" || se.EventType != EventScanFailed {
		t.Fatalf("rfid event = %+v", se)
	}
}
