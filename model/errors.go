package model

import "errors"

var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// session's current state. Nothing is changed when it is returned.
	ErrInvalidState = errors.New("invalid state")

	// ErrEmptyInput is returned for blank user input.
	ErrEmptyInput = errors.New("empty input")
)
