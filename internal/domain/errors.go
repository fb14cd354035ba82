package domain

import (
	"errors"
	"fmt"

	"smartbus-service/pkg/validation"
)

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "Not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// ValidationError carries every rejected field of a request.
type ValidationError struct {
	Fields validation.Errors
}

func (e ValidationError) Error() string {
	switch len(e.Fields) {
	case 0:
		return "validation error"
	case 1:
		return fmt.Sprintf("%s: %s", e.Fields[0].Field, e.Fields[0].Msg)
	default:
		return fmt.Sprintf("%s: %s (and %d more)", e.Fields[0].Field, e.Fields[0].Msg, len(e.Fields)-1)
	}
}

// ConflictError reports a request that clashes with current state.
// Items lists the conflicting keys, e.g. seat labels.
type ConflictError struct {
	Msg   string
	Items []string
	Err   error
}

func (e ConflictError) Error() string {
	if e.Msg == "" {
		return "conflict"
	}
	return e.Msg
}

func (e ConflictError) Unwrap() error { return e.Err }

type UnauthorizedError struct{ Msg string }

func (e UnauthorizedError) Error() string {
	if e.Msg == "" {
		return "Unauthorized"
	}
	return e.Msg
}

type ForbiddenError struct{ Msg string }

func (e ForbiddenError) Error() string {
	if e.Msg == "" {
		return "Forbidden"
	}
	return e.Msg
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

// ErrNoRows is returned by repositories when a lookup matches nothing.
var ErrNoRows = errors.New("no rows")
