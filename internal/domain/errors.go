package domain

import "errors"

var (
	// ErrNoProducts is returned when a run resolves to an empty product set.
	ErrNoProducts = errors.New("no products to process")

	// ErrResourceUnavailable marks failures of a resource shared by a whole
	// batch (connection loss, exhausted pool). It escapes per-item handling.
	ErrResourceUnavailable = errors.New("shared resource unavailable")
)
