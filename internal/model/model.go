// Package model provides the model interface and backend clients.
package model

import "context"

// Model represents either the local on-device model or a cloud backend.
type Model interface {
	// Generate runs inference on the model.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// IsAvailable checks if the model is ready.
	IsAvailable() bool

	// Name returns the model identifier.
	Name() string

	// Tier returns the cost tier this backend serves.
	Tier() Tier

	// Status returns the current status of the model.
	Status() *Status
}
