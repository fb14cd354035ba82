package reviews

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"smartbus-service/pkg/httpx"
	"smartbus-service/pkg/jwt"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router for /api/reviews. Listing a bus's reviews is
// public; the rest needs a token.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ForBus)
	r.Group(func(r chi.Router) {
		r.Use(jwt.RequireAuth)
		r.Get("/mine", h.Mine)
		r.Post("/", h.Create)
	})
	return r
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	rv, err := h.svc.Create(r.Context(), jwt.GetClaims(r.Context()).UserID, req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "Review submitted successfully",
		"review":  rv,
	})
}

func (h *Handler) ForBus(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ForBus(r.Context(), r.URL.Query().Get("busId"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Mine(r.Context(), jwt.GetClaims(r.Context()).UserID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}
