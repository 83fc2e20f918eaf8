// Package notify publishes service status changes to interested parties.
package notify

import (
	"context"
	"time"

	"github.com/ukydev/garage-tracking/internal/models"
)

// StatusEvent describes one service changing state on a vehicle.
type StatusEvent struct {
	VehicleNumber string               `json:"vehicle_number"`
	Service       string               `json:"service"`
	Status        models.ServiceStatus `json:"status"`
	AllCompleted  bool                 `json:"all_completed"`
	At            time.Time            `json:"at"`
}

// Notifier receives status events after they have been stored.
type Notifier interface {
	StatusChanged(ctx context.Context, ev StatusEvent) error
	Close()
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) StatusChanged(context.Context, StatusEvent) error { return nil }
func (NopNotifier) Close()                                           {}
