package internaltypes

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")

	// ErrDayFull and ErrAnchorTaken are returned by stores when a write
	// loses a race that the validator could not see.
	ErrDayFull     = errors.New("day is fully booked")
	ErrAnchorTaken = errors.New("day already has an anchor")

	ErrNotScheduled = errors.New("booking is not scheduled")
	ErrInvalidHold  = errors.New("hold token is invalid or expired")
)
