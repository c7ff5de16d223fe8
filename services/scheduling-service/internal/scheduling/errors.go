package scheduling

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

type Kind string

const (
	KindUnauthorized          Kind = "unauthorized"
	KindNotFound              Kind = "not_found"
	KindCapacityExceeded      Kind = "capacity_exceeded"
	KindTimeConflict          Kind = "time_conflict"
	KindStaffIneligible       Kind = "staff_ineligible"
	KindAlreadyAssigned       Kind = "already_assigned"
	KindInvalidInput          Kind = "invalid_input"
	KindNoEligibleAppointment Kind = "no_eligible_appointment"
	KindInternal              Kind = "internal"
)

// Error is a business rule failure. Err carries the underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func invalidInput(format string, args ...any) *Error {
	return newError(KindInvalidInput, format, args...)
}

func notFound(what, id string, err error) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", what, id), Err: err}
}

// KindOf classifies err. Anything that is not a business rule failure is internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return KindInternal
}

// lookup maps a store miss to a NotFound error and passes other errors through.
func lookup(what, id string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return notFound(what, id, err)
	}
	return err
}
