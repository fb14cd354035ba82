package fleet

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

var noon = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestSim(t *testing.T, sink Sink) *Simulator {
	t.Helper()
	s := NewSimulator(42, sink)
	s.now = func() time.Time { return noon }
	return s
}

func TestRosterLayout(t *testing.T) {
	s := newTestSim(t, nil)
	buses := s.Buses()
	if len(buses) != 90 {
		t.Fatalf("roster size = %d, want 90", len(buses))
	}
	var active, maint, idle int
	for i, b := range buses {
		if b.ID != i+1 {
			t.Fatalf("bus %d has id %d", i, b.ID)
		}
		if b.Occupancy < 0 || b.Occupancy > b.Capacity {
			t.Fatalf("%s occupancy %d outside [0,%d]", b.Code, b.Occupancy, b.Capacity)
		}
		switch b.Status {
		case StatusActive:
			active++
		case StatusMaintenance:
			maint++
		case StatusIdle:
			idle++
		}
	}
	if active != 81 || maint != 3 || idle != 6 {
		t.Fatalf("active/maintenance/idle = %d/%d/%d", active, maint, idle)
	}
	if buses[0].Code != "SB001" || buses[89].Code != "SB090" {
		t.Fatalf("codes = %s..%s", buses[0].Code, buses[89].Code)
	}

	st := s.Stats()
	if st.TotalBuses != 90 || st.ActiveRoutes != active || st.IoTSensors != 450 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestSameSeedSameRoster(t *testing.T) {
	a, b := NewSimulator(7, nil).Buses(), NewSimulator(7, nil).Buses()
	for i := range a {
		if a[i].Occupancy != b[i].Occupancy {
			t.Fatalf("bus %d: occupancy %d vs %d", i, a[i].Occupancy, b[i].Occupancy)
		}
	}
}

func TestTickKeepsValuesInRange(t *testing.T) {
	s := newTestSim(t, nil)
	for i := 0; i < 500; i++ {
		res := s.Tick()
		if len(res.Active) != 81 {
			t.Fatalf("tick %d: %d active buses", i, len(res.Active))
		}
	}
	if st := s.Stats(); st.ActiveRoutes != 81 {
		t.Fatalf("activeRoutes = %d, want one per active bus", st.ActiveRoutes)
	}

	for _, b := range s.Buses() {
		if b.Occupancy < 0 || b.Occupancy > b.Capacity {
			t.Fatalf("%s occupancy %d outside [0,%d]", b.Code, b.Occupancy, b.Capacity)
		}
		if b.Status != StatusActive {
			if !b.LastUpdate.IsZero() || b.FuelLevel != 85 {
				t.Fatalf("%s is %s but was updated", b.Code, b.Status)
			}
			continue
		}
		if b.FuelLevel < 10 || b.FuelLevel > 85 {
			t.Fatalf("%s fuel %.2f", b.Code, b.FuelLevel)
		}
		if b.Temperature < 20 || b.Temperature > 35 || b.Humidity < 35 || b.Humidity > 55 {
			t.Fatalf("%s climate %.1f/%.1f", b.Code, b.Temperature, b.Humidity)
		}
		if b.Vibration < 0 || b.Vibration > 0.5 {
			t.Fatalf("%s vibration %.2f", b.Code, b.Vibration)
		}
	}

	st := s.Stats()
	if st.EnergyEfficiency < 75 || st.EnergyEfficiency > 95 {
		t.Fatalf("efficiency = %.2f", st.EnergyEfficiency)
	}
	if st.GreenScore < 80 || st.GreenScore > 98 {
		t.Fatalf("green score = %.2f", st.GreenScore)
	}
	if st.TotalBookings < 1247 {
		t.Fatalf("total bookings went down: %d", st.TotalBookings)
	}

	evs, _ := s.Events("")
	if len(evs) == 0 || len(evs) > maxEvents {
		t.Fatalf("event log size = %d", len(evs))
	}
	if got := len(s.Readings()); got != maxReadings {
		t.Fatalf("reading log size = %d", got)
	}
}

func TestPeakHoursNeverUnboard(t *testing.T) {
	s := newTestSim(t, nil)
	s.now = func() time.Time { return time.Date(2026, 3, 14, 8, 15, 0, 0, time.UTC) }

	before := s.Buses()
	s.Tick()
	after := s.Buses()
	for i := range before {
		if after[i].Occupancy < before[i].Occupancy {
			t.Fatalf("%s occupancy dropped %d -> %d at peak", before[i].Code, before[i].Occupancy, after[i].Occupancy)
		}
	}
}

func TestReadingCarriesSeatPressure(t *testing.T) {
	s := newTestSim(t, nil)
	res := s.Tick()

	rd, err := s.LatestReading("SB001")
	if err != nil {
		t.Fatal(err)
	}
	b := res.Active[0]
	if b.Code != "SB001" {
		t.Fatalf("first active bus = %s", b.Code)
	}
	if len(rd.SeatPressure) != b.Capacity {
		t.Fatalf("seat pressure has %d entries, capacity %d", len(rd.SeatPressure), b.Capacity)
	}
	for i, p := range rd.SeatPressure {
		occupied := i < b.Occupancy
		if occupied && p < 0.5 || !occupied && p > 0.1 {
			t.Fatalf("seat %d pressure %.2f (occupied=%v)", i, p, occupied)
		}
	}

	// SB010 is the maintenance bus of the first corridor.
	if _, err := s.LatestReading("SB010"); err == nil {
		t.Fatal("expected no reading for a bus that never ran")
	}
	if _, err := s.LatestReading("SB999"); err != errUnknownBus {
		t.Fatalf("err = %v", err)
	}
}

func TestLookupByIDOrCode(t *testing.T) {
	s := newTestSim(t, nil)
	for _, key := range []string{"12", "SB012", "sb012", " SB012 "} {
		b, ok := s.Bus(key)
		if !ok || b.ID != 12 {
			t.Fatalf("Bus(%q) = %d, %v", key, b.ID, ok)
		}
	}
	for _, key := range []string{"0", "91", "SB091", "abc", ""} {
		if _, ok := s.Bus(key); ok {
			t.Fatalf("Bus(%q) should not resolve", key)
		}
	}
}

func TestScanBoardsUntilFull(t *testing.T) {
	s := newTestSim(t, nil)
	bus := s.buses[0]
	bus.Occupancy = bus.Capacity - 1
	passengers := s.Stats().TodayPassengers

	ev, err := s.RecordScan(context.Background(), ScanRequest{BusID: "1", TicketID: "PNR0000AAAA"}, true)
	if err != nil {
		t.Fatal(err)
	}
	if ev.EventType != EventBoarding || !ev.Success {
		t.Fatalf("first scan = %+v", ev)
	}
	if bus.Occupancy != bus.Capacity || s.Stats().TodayPassengers != passengers+1 {
		t.Fatalf("occupancy %d, passengers %d", bus.Occupancy, s.Stats().TodayPassengers)
	}

	ev, _ = s.RecordScan(context.Background(), ScanRequest{BusID: "SB001", TicketID: "PNR0000BBBB"}, true)
	if ev.EventType != EventCapacityExceeded || ev.Success {
		t.Fatalf("scan on full bus = %+v", ev)
	}
	if bus.Occupancy != bus.Capacity || s.Stats().TodayPassengers != passengers+1 {
		t.Fatal("full bus boarded a passenger")
	}

	ev, _ = s.RecordScan(context.Background(), ScanRequest{BusID: "SB001", TicketID: "bogus"}, false)
	if ev.EventType != EventScanFailed || ev.Success {
		t.Fatalf("invalid ticket scan = %+v", ev)
	}
	if !strings.HasPrefix(ev.ReaderID, "READER_1_") || ev.Location != "boarding_gate_1" {
		t.Fatalf("defaults not filled: %+v", ev)
	}

	evs, err := s.Events("SB001")
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 3 || evs[0].TicketID != "bogus" {
		t.Fatalf("events for SB001 = %+v", evs)
	}
	if _, err := s.RecordScan(context.Background(), ScanRequest{BusID: "SB404"}, true); err != errUnknownBus {
		t.Fatalf("err = %v", err)
	}
}

func TestBoardingStatusWindow(t *testing.T) {
	s := newTestSim(t, nil)
	clock := noon
	s.now = func() time.Time { return clock }
	s.buses[1].Occupancy = 0

	ctx := context.Background()
	s.RecordScan(ctx, ScanRequest{BusID: "SB002", TicketID: "a"}, true)
	clock = clock.Add(30 * time.Minute)
	s.RecordScan(ctx, ScanRequest{BusID: "SB002", TicketID: "b"}, true)
	s.RecordScan(ctx, ScanRequest{BusID: "SB002", TicketID: "c"}, false)

	st, err := s.BoardingStatus("SB002")
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalScans != 3 || st.Boarded != 2 || st.Missed != 1 || st.WindowMinutes != 60 {
		t.Fatalf("status = %+v", st)
	}
	if !st.LastScan.Equal(clock) {
		t.Fatalf("last scan = %v", st.LastScan)
	}

	clock = clock.Add(45 * time.Minute)
	st, _ = s.BoardingStatus("2")
	if st.TotalScans != 2 || st.Boarded != 1 || st.Missed != 1 {
		t.Fatalf("status after first scan aged out = %+v", st)
	}
}

func TestSensorFeed(t *testing.T) {
	s := newTestSim(t, nil)
	s.Tick()
	feed := s.SensorFeed()
	if len(feed) != sensorFeedSize {
		t.Fatalf("feed size = %d", len(feed))
	}
	if feed[0].ID != "sensor_1" || feed[0].BusID != "SB001" || feed[0].Timestamp.IsZero() {
		t.Fatalf("first record = %+v", feed[0])
	}
}

type recordingSink struct {
	mu        sync.Mutex
	telemetry int
	rfid      []RFIDEvent
}

func (r *recordingSink) Telemetry(_ context.Context, buses []LiveBus) {
	r.mu.Lock()
	r.telemetry += len(buses)
	r.mu.Unlock()
}

func (r *recordingSink) RFID(_ context.Context, ev RFIDEvent) {
	r.mu.Lock()
	r.rfid = append(r.rfid, ev)
	r.mu.Unlock()
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.telemetry
}

func TestRunFeedsSinkAndStops(t *testing.T) {
	sink := &recordingSink{}
	s := newTestSim(t, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sink.count() < 81*2 {
		select {
		case <-deadline:
			t.Fatalf("sink saw %d bus updates", sink.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRecordScanReachesSink(t *testing.T) {
	sink := &recordingSink{}
	s := newTestSim(t, sink)
	s.RecordScan(context.Background(), ScanRequest{BusID: "SB003", TicketID: "x"}, false)
	if len(sink.rfid) != 1 || sink.rfid[0].BusCode != "SB003" {
		t.Fatalf("sink rfid = %+v", sink.rfid)
	}
}

func TestPrependCapped(t *testing.T) {
	got := prependCapped([]int{3, 2, 1}, []int{4, 5}, 4)
	want := []int{5, 4, 3, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
