// Package httpx holds the JSON response helpers and middleware shared by
// every HTTP handler in the service.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"smartbus-service/internal/domain"
	"smartbus-service/pkg/validation"
)

// maxBodyBytes caps request bodies at 10 MB.
const maxBodyBytes = 10 << 20

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Error writes {"error": msg}.
func Error(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// WriteError maps domain errors onto HTTP responses. Unknown errors are
// logged and answered with a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound  domain.NotFoundError
		invalid   domain.ValidationError
		conflict  domain.ConflictError
		unauth    domain.UnauthorizedError
		forbidden domain.ForbiddenError
	)
	switch {
	case errors.As(err, &invalid):
		WriteJSON(w, http.StatusBadRequest, map[string]any{"errors": invalid.Fields})
	case errors.As(err, &notFound):
		Error(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &conflict):
		body := map[string]any{"error": conflict.Error()}
		if len(conflict.Items) > 0 {
			body["unavailableSeats"] = conflict.Items
		}
		WriteJSON(w, http.StatusBadRequest, body)
	case errors.As(err, &unauth):
		Error(w, http.StatusUnauthorized, unauth.Error())
	case errors.As(err, &forbidden):
		Error(w, http.StatusForbidden, forbidden.Error())
	default:
		log.Printf("[http] request_id=%s %s %s: %v",
			middleware.GetReqID(r.Context()), r.Method, r.URL.Path, err)
		Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

// Decode reads a JSON body into dst. A malformed body is reported as a
// validation error on the "body" field.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		return domain.ValidationError{Fields: validation.Errors{{Field: "body", Msg: msg}}}
	}
	return nil
}
