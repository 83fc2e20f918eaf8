// Package handlers holds the UI-independent state and actions behind the
// registration form and the tracking screen. Every action takes the current
// state and returns the next one; front ends only render states.
package handlers

import (
	"context"

	"github.com/ukydev/garage-tracking/internal/garage"
	"github.com/ukydev/garage-tracking/internal/models"
)

// Garage is the part of garage.Service the handlers use.
type Garage interface {
	Register(ctx context.Context, reg garage.Registration) (*garage.Receipt, error)
	Lookup(ctx context.Context, payload []byte) (*models.Record, error)
	UpdateStatus(ctx context.Context, vehicleNumber, service string, status models.ServiceStatus) (*models.Record, error)
}

var _ Garage = (*garage.Service)(nil)
