package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when a record does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidStatus is returned for pantry statuses outside the known set
	ErrInvalidStatus = errors.New("invalid pantry status")

	// ErrInvalidDebounce is returned for an unusable debounce configuration
	ErrInvalidDebounce = errors.New("debounce jitter must be within [0, window)")

	// ErrMissingArgument is returned when a tool call lacks a required argument
	ErrMissingArgument = errors.New("missing required argument")
)
