package fleet

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"smartbus-service/internal/domain"
	"smartbus-service/pkg/httpx"
	"smartbus-service/pkg/jwt"
	"smartbus-service/pkg/validation"
)

// TicketValidator checks a scanned ticket against stored bookings.
// *bookings.Service implements it.
type TicketValidator interface {
	ValidateTicket(ctx context.Context, busID, ticket string) (bool, error)
}

// Handler serves the simulated IoT, RFID and fleet endpoints.
type Handler struct {
	sim     *Simulator
	tickets TicketValidator
}

func NewHandler(sim *Simulator, tickets TicketValidator) *Handler {
	return &Handler{sim: sim, tickets: tickets}
}

// IoTRoutes is mounted at /api/iot.
func (h *Handler) IoTRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/data", h.SensorData)
	r.Get("/bus/{busId}", h.BusReading)
	return r
}

// RFIDRoutes is mounted at /api/rfid.
func (h *Handler) RFIDRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/events", h.Events)
	r.Get("/boarding-status/{busId}", h.BoardingStatus)
	r.With(jwt.RequireAuth).Post("/scan", h.Scan)
	return r
}

// FleetRoutes is mounted at /api/fleet.
func (h *Handler) FleetRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/buses", h.Buses)
	r.Get("/stats", h.Stats)
	return r
}

func (h *Handler) SensorData(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.sim.SensorFeed())
}

func (h *Handler) BusReading(w http.ResponseWriter, r *http.Request) {
	rd, err := h.sim.LatestReading(chi.URLParam(r, "busId"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rd)
}

func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	evs, err := h.sim.Events(r.URL.Query().Get("busId"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, evs)
}

func (h *Handler) BoardingStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.sim.BoardingStatus(chi.URLParam(r, "busId"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}

// Scan validates the ticket against confirmed bookings of the bus and
// records the outcome as a boarding or failed scan.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	req.BusID = strings.TrimSpace(req.BusID)
	req.TicketID = strings.TrimSpace(req.TicketID)

	var errs validation.Errors
	errs.Check(req.BusID != "", "busId", "busId is required")
	errs.Check(req.TicketID != "", "ticketId", "ticketId is required")
	if !errs.Empty() {
		httpx.WriteError(w, r, domain.ValidationError{Fields: errs})
		return
	}

	bus, ok := h.sim.Bus(req.BusID)
	if !ok {
		httpx.WriteError(w, r, errUnknownBus)
		return
	}
	valid := false
	if h.tickets != nil {
		var err error
		valid, err = h.tickets.ValidateTicket(r.Context(), bus.Code, req.TicketID)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
	}

	ev, err := h.sim.RecordScan(r.Context(), req, valid)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, ev)
}

func (h *Handler) Buses(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.sim.Buses())
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.sim.Stats())
}
