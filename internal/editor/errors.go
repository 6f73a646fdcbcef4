package editor

import "errors"

var (
	// ErrDeckNotFound is returned when the requested deck does not exist.
	ErrDeckNotFound = errors.New("deck not found")

	// ErrCardNotFound is returned when no stack with the given key exists in
	// the zone.
	ErrCardNotFound = errors.New("card not found in zone")

	// ErrPrintingNotFound is returned when the card source lists printings
	// for a card but none matches the requested one.
	ErrPrintingNotFound = errors.New("printing not found")

	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStaleRequest is returned when a newer request on the same channel
	// started while this one was in flight; its result was discarded.
	ErrStaleRequest = errors.New("superseded by a newer request")

	// ErrSessionLocked is returned when another session holds the deck.
	ErrSessionLocked = errors.New("deck is open in another session")
)
