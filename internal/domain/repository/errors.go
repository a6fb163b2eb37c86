package repository

import "errors"

var (
	// ErrActivityNotFound is returned when no cache entry exists for an address
	ErrActivityNotFound = errors.New("activity record not found")

	// ErrEdgeNotFound is returned when deleting an edge the backend does not know
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrNotConnected is returned by repositories whose backend connection was never established
	ErrNotConnected = errors.New("backend not connected")
)
