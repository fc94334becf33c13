package model

import "errors"

// Sentinel errors shared by every layer.  Stores and services wrap them
// with context using fmt.Errorf("...: %w", ...) and the HTTP error handler
// maps them to status codes with errors.Is.
var (
	// ErrValidation marks malformed or missing input (400).
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized marks a missing or invalid credential (401).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden marks an authenticated caller lacking the required role (403).
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound marks a referenced entity that does not exist (404).
	ErrNotFound = errors.New("not found")
	// ErrCapacityExceeded is returned when admitting a booking would oversell
	// a showtime (409).
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrConflict covers duplicate unique fields and deletes blocked by
	// dependent records (409).
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition is returned for booking status changes outside
	// the transition table (409).
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrDuplicateReference is returned by the booking ledger when a booking
	// reference is already taken.  Admission regenerates the reference.
	ErrDuplicateReference = errors.New("duplicate booking reference")
)
