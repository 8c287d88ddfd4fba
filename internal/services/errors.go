// Package services defines the business logic for trips, itinerary versions,
// and the planning conversation. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Trip-related errors.
var (
	// ErrTripNotFound indicates that the requested trip does not exist or is
	// not accessible to the current user.
	ErrTripNotFound = errors.New("trip not found")

	// ErrMissingOperationID is returned when an apply request carries no
	// client operation id. Without one the idempotency protocol cannot work.
	ErrMissingOperationID = errors.New("client operation id is required")

	// ErrOperationConflict is returned when two simultaneous submissions with
	// the same client operation id race at the unique constraint. Callers
	// should retry; the replay path will then serve the committed result.
	ErrOperationConflict = errors.New("operation already in flight, retry")

	// ErrEmptyMessage is returned when a conversation turn contains an empty
	// message.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when a conversation turn exceeds the
	// maximum configured length limit.
	ErrMessageTooLong = errors.New("message too long")
)
