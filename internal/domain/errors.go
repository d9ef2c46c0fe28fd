package domain

import (
	"errors"
	"fmt"
)

type NotFoundError struct {
	Resource string
	ID       ID
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	if e.ID > 0 {
		return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

// ConflictError reports a scheduling overlap. BlockingTripID names the trip
// that already occupies the resource so operators can act on it.
type ConflictError struct {
	Resource       string
	ResourceID     ID
	BlockingTripID ID
	Msg            string
	Err            error
}

func (e ConflictError) Error() string {
	switch {
	case e.BlockingTripID > 0 && e.Resource != "":
		return fmt.Sprintf("%s %d conflicts with trip %d", e.Resource, e.ResourceID, e.BlockingTripID)
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

// InvalidTransitionError reports an operation not legal for the current
// trip/booking status.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
	Msg    string
}

func (e InvalidTransitionError) Error() string {
	if e.From != "" && e.To != "" {
		return fmt.Sprintf("invalid %s transition: %s -> %s", e.Entity, e.From, e.To)
	}
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("invalid %s state", e.Entity)
}

// UnauthorizedError reports a caller acting outside its capability, e.g. a
// driver acting on a trip assigned to someone else.
type UnauthorizedError struct {
	Msg string
}

func (e UnauthorizedError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "unauthorized"
}

// EligibilityError reports category/license mismatches between a resource and
// a trip. Code is one of CategoryMismatch, LicenseIncompatible.
type EligibilityError struct {
	Code string
	Msg  string
}

func (e EligibilityError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Msg)
	}
	return e.Code
}

const (
	EligibilityCategoryMismatch    = "CategoryMismatch"
	EligibilityLicenseIncompatible = "LicenseIncompatible"
)

// NotDispatchableError reports a trip that cannot accept crew right now,
// e.g. its booking is unconfirmed, the deposit is short, or the trip has
// already finished.
type NotDispatchableError struct {
	TripID    ID
	BookingID ID
	Reason    string
}

func (e NotDispatchableError) Error() string {
	subject := fmt.Sprintf("trip %d", e.TripID)
	if e.TripID <= 0 && e.BookingID > 0 {
		subject = fmt.Sprintf("booking %d", e.BookingID)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s is not dispatchable: %s", subject, e.Reason)
	}
	return subject + " is not dispatchable"
}

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

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

func IsInvalidTransition(err error) bool {
	var target InvalidTransitionError
	return errors.As(err, &target)
}

func IsUnauthorized(err error) bool {
	var target UnauthorizedError
	return errors.As(err, &target)
}

func IsEligibility(err error) bool {
	var target EligibilityError
	return errors.As(err, &target)
}

func IsNotDispatchable(err error) bool {
	var target NotDispatchableError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}
