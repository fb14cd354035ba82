package fleet

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	maxEvents      = 50
	maxReadings    = 100
	rfidChance     = 0.15
	bookingChance  = 0.10
	boardingWindow = time.Hour
	sensorsPerBus  = 5
	sensorFeedSize = 20
)

// Sink receives the output of each tick. Calls happen outside the
// simulator lock.
type Sink interface {
	Telemetry(ctx context.Context, buses []LiveBus)
	RFID(ctx context.Context, ev RFIDEvent)
}

// TickResult is what one tick produced.
type TickResult struct {
	Active []LiveBus
	Event  *RFIDEvent
}

// Simulator owns the live fleet state. All access goes through its mutex;
// the random source is only touched under the lock.
type Simulator struct {
	mu       sync.RWMutex
	rng      *rand.Rand
	now      func() time.Time
	buses    []*LiveBus
	byCode   map[string]*LiveBus
	events   []RFIDEvent
	readings []IoTReading
	scans    map[int][]RFIDEvent
	stats    SystemStats
	seq      int64
	sink     Sink
}

// NewSimulator builds the roster from seed. sink may be nil.
func NewSimulator(seed int64, sink Sink) *Simulator {
	rng := rand.New(rand.NewSource(seed))
	s := &Simulator{
		rng:    rng,
		now:    time.Now,
		buses:  newRoster(rng),
		byCode: make(map[string]*LiveBus),
		scans:  make(map[int][]RFIDEvent),
		sink:   sink,
	}
	for _, b := range s.buses {
		s.byCode[b.Code] = b
	}
	s.stats = SystemStats{
		TotalBuses:       len(s.buses),
		ActiveRoutes:     s.activeRoutes(),
		TodayPassengers:  1247,
		IoTSensors:       len(s.buses) * sensorsPerBus,
		TotalRevenue:     2500000,
		EnergyEfficiency: 91.2,
		GreenScore:       94.5,
		TotalBookings:    1247,
		LastUpdate:       s.now(),
	}
	return s
}

// Run ticks every interval until ctx is cancelled. Ticks never overlap;
// sink delivery happens in the background with a deadline of one interval.
func (s *Simulator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Printf("[fleet] simulation started: %d buses, tick every %s", len(s.buses), interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("[fleet] simulation stopped")
			return
		case <-ticker.C:
			res := s.Tick()
			if s.sink == nil {
				continue
			}
			go func() {
				sctx, cancel := context.WithTimeout(ctx, interval)
				defer cancel()
				s.sink.Telemetry(sctx, res.Active)
				if res.Event != nil {
					s.sink.RFID(sctx, *res.Event)
				}
			}()
		}
	}
}

// Tick advances the simulation by one step.
func (s *Simulator) Tick() TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	hour := now.Hour()
	peak := (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19)

	var (
		active   []LiveBus
		readings []IoTReading
	)
	for _, b := range s.buses {
		if b.Status != StatusActive {
			continue
		}
		var delta int
		if peak {
			delta = s.rng.Intn(2)
		} else {
			delta = s.rng.Intn(3) - 1
		}
		b.Occupancy = clampInt(b.Occupancy+delta, 0, b.Capacity)
		b.Temperature = 20 + s.rng.Float64()*15
		b.Humidity = 35 + s.rng.Float64()*20
		b.Vibration = s.rng.Float64() * 0.5
		b.FuelLevel = max(10, b.FuelLevel-s.rng.Float64()*0.1)
		b.Speed = 40 + s.rng.Float64()*60
		b.Location.Latitude += (s.rng.Float64() - 0.5) * 0.002
		b.Location.Longitude += (s.rng.Float64() - 0.5) * 0.002
		b.LastUpdate = now

		readings = append(readings, s.reading(b, now))
		active = append(active, *b)
	}
	s.readings = prependCapped(s.readings, readings, maxReadings)

	var event *RFIDEvent
	if len(active) > 0 && s.rng.Float64() < rfidChance {
		b := s.byCode[active[s.rng.Intn(len(active))].Code]
		types := []string{EventBoarding, EventScanFailed, EventCapacityExceeded}
		kind := types[s.rng.Intn(len(types))]
		ev := RFIDEvent{
			ID:          s.nextEventID(now),
			BusID:       b.ID,
			BusCode:     b.Code,
			ReaderID:    fmt.Sprintf("READER_%d_%d", b.ID, s.rng.Intn(3)+1),
			TicketID:    fmt.Sprintf("TICKET_%d", s.rng.Intn(10000)),
			PassengerID: strconv.Itoa(s.rng.Intn(1000)),
			EventType:   kind,
			EventTime:   now,
			Location:    fmt.Sprintf("boarding_gate_%d", b.ID),
			Success:     kind == EventBoarding,
		}
		ev = s.apply(b, ev)
		event = &ev
	}

	st := &s.stats
	st.EnergyEfficiency = clampFloat(st.EnergyEfficiency+(s.rng.Float64()-0.5)*0.5, 75, 95)
	st.GreenScore = clampFloat(st.GreenScore+(s.rng.Float64()-0.5)*0.3, 80, 98)
	if s.rng.Float64() < bookingChance {
		st.TotalBookings++
	}
	st.ActiveRoutes = s.activeRoutes()
	st.LastUpdate = now

	return TickResult{Active: active, Event: event}
}

// apply records ev against b. A successful boarding on a full bus is
// turned into a failed CAPACITY_EXCEEDED event. Caller holds the lock.
func (s *Simulator) apply(b *LiveBus, ev RFIDEvent) RFIDEvent {
	if ev.EventType == EventBoarding && ev.Success {
		if b.Occupancy < b.Capacity {
			b.Occupancy++
			s.stats.TodayPassengers++
		} else {
			ev.EventType = EventCapacityExceeded
			ev.Success = false
		}
	}
	s.events = prependCapped(s.events, []RFIDEvent{ev}, maxEvents)

	cutoff := ev.EventTime.Add(-boardingWindow)
	kept := s.scans[b.ID][:0]
	for _, old := range s.scans[b.ID] {
		if old.EventTime.After(cutoff) {
			kept = append(kept, old)
		}
	}
	s.scans[b.ID] = append(kept, ev)
	return ev
}

func (s *Simulator) reading(b *LiveBus, now time.Time) IoTReading {
	pressure := make([]float64, b.Capacity)
	for i := range pressure {
		if i < b.Occupancy {
			pressure[i] = 0.5 + s.rng.Float64()*0.5
		} else {
			pressure[i] = s.rng.Float64() * 0.1
		}
	}
	return IoTReading{
		BusID:        b.ID,
		BusCode:      b.Code,
		Temperature:  b.Temperature,
		Humidity:     b.Humidity,
		Vibration:    b.Vibration,
		FuelLevel:    b.FuelLevel,
		SeatPressure: pressure,
		Timestamp:    now,
	}
}

func (s *Simulator) nextEventID(now time.Time) string {
	s.seq++
	return fmt.Sprintf("EVT_%d_%d", now.UnixMilli(), s.seq)
}

// activeRoutes counts buses currently in service; each one is running a route.
func (s *Simulator) activeRoutes() int {
	n := 0
	for _, b := range s.buses {
		if b.Status == StatusActive {
			n++
		}
	}
	return n
}

// lookup resolves a roster id ("12") or bus code ("SB012"). Caller holds
// the lock.
func (s *Simulator) lookup(key string) (*LiveBus, bool) {
	key = strings.ToUpper(strings.TrimSpace(key))
	if b, ok := s.byCode[key]; ok {
		return b, true
	}
	if id, err := strconv.Atoi(key); err == nil && id >= 1 && id <= len(s.buses) {
		return s.buses[id-1], true
	}
	return nil, false
}

// RecordScan registers a scan submitted by a reader. A valid ticket boards
// (subject to capacity), an invalid one is a SCAN_FAILED event.
func (s *Simulator) RecordScan(ctx context.Context, req ScanRequest, valid bool) (RFIDEvent, error) {
	s.mu.Lock()
	b, ok := s.lookup(req.BusID)
	if !ok {
		s.mu.Unlock()
		return RFIDEvent{}, errUnknownBus
	}
	now := s.now()
	ev := RFIDEvent{
		ID:          s.nextEventID(now),
		BusID:       b.ID,
		BusCode:     b.Code,
		ReaderID:    req.ReaderID,
		TicketID:    req.TicketID,
		PassengerID: req.TicketID,
		EventType:   EventScanFailed,
		EventTime:   now,
		Location:    req.Location,
	}
	if ev.ReaderID == "" {
		ev.ReaderID = fmt.Sprintf("READER_%d_1", b.ID)
	}
	if ev.Location == "" {
		ev.Location = fmt.Sprintf("boarding_gate_%d", b.ID)
	}
	if valid {
		ev.EventType = EventBoarding
		ev.Success = true
	}
	ev = s.apply(b, ev)
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.RFID(ctx, ev)
	}
	return ev, nil
}

// Buses returns a copy of the roster.
func (s *Simulator) Buses() []LiveBus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]LiveBus, len(s.buses))
	for i, b := range s.buses {
		out[i] = *b
	}
	return out
}

func (s *Simulator) Bus(key string) (LiveBus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.lookup(key)
	if !ok {
		return LiveBus{}, false
	}
	return *b, true
}

func (s *Simulator) Stats() SystemStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Events returns recent RFID events newest first, optionally for one bus.
func (s *Simulator) Events(busKey string) ([]RFIDEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if busKey == "" {
		return append([]RFIDEvent{}, s.events...), nil
	}
	b, ok := s.lookup(busKey)
	if !ok {
		return nil, errUnknownBus
	}
	out := []RFIDEvent{}
	for _, ev := range s.events {
		if ev.BusID == b.ID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Readings returns the recorded IoT readings newest first.
func (s *Simulator) Readings() []IoTReading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]IoTReading{}, s.readings...)
}

// LatestReading returns the newest reading of one bus. Buses that have not
// reported since the log rotated get a reading built from their state.
func (s *Simulator) LatestReading(busKey string) (IoTReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.lookup(busKey)
	if !ok {
		return IoTReading{}, errUnknownBus
	}
	for _, r := range s.readings {
		if r.BusID == b.ID {
			return r, nil
		}
	}
	if b.LastUpdate.IsZero() {
		return IoTReading{}, errNoReading
	}
	return IoTReading{
		BusID: b.ID, BusCode: b.Code,
		Temperature: b.Temperature, Humidity: b.Humidity, Vibration: b.Vibration,
		FuelLevel: b.FuelLevel, SeatPressure: []float64{}, Timestamp: b.LastUpdate,
	}, nil
}

// SensorFeed returns one flat sensor record for each of the first twenty
// roster buses.
func (s *Simulator) SensorFeed() []SensorRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := min(sensorFeedSize, len(s.buses))
	out := make([]SensorRecord, 0, n)
	for i := 0; i < n; i++ {
		b := s.buses[i]
		ts := b.LastUpdate
		if ts.IsZero() {
			ts = s.stats.LastUpdate
		}
		out = append(out, SensorRecord{
			ID:          fmt.Sprintf("sensor_%d", i+1),
			BusID:       b.Code,
			Temperature: b.Temperature,
			Humidity:    b.Humidity,
			FuelLevel:   b.FuelLevel,
			Speed:       b.Speed,
			Location:    b.Location,
			Timestamp:   ts,
		})
	}
	return out
}

// BoardingStatus summarises the scans of the last hour on one bus.
func (s *Simulator) BoardingStatus(busKey string) (BoardingStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.lookup(busKey)
	if !ok {
		return BoardingStatus{}, errUnknownBus
	}
	st := BoardingStatus{
		BusID:         b.ID,
		BusCode:       b.Code,
		WindowMinutes: int(boardingWindow / time.Minute),
		Occupancy:     b.Occupancy,
		Capacity:      b.Capacity,
	}
	cutoff := s.now().Add(-boardingWindow)
	for _, ev := range s.scans[b.ID] {
		if !ev.EventTime.After(cutoff) {
			continue
		}
		st.TotalScans++
		if ev.Success {
			st.Boarded++
		} else {
			st.Missed++
		}
		if ev.EventTime.After(st.LastScan) {
			st.LastScan = ev.EventTime
		}
	}
	return st, nil
}

func prependCapped[T any](cur, fresh []T, limit int) []T {
	out := make([]T, 0, min(len(cur)+len(fresh), limit))
	for i := len(fresh) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, fresh[i])
	}
	for _, v := range cur {
		if len(out) == limit {
			break
		}
		out = append(out, v)
	}
	return out
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func clampFloat(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
