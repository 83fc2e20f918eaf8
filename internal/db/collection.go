package db

import (
	"context"
	"fmt"

	"github.com/ukydev/garage-tracking/internal/models"
)

// RecordCollection defines the interface for vehicle service record storage.
// Records are keyed by vehicle number.
type RecordCollection interface {
	// CreateRecord stores a new record. It fails with models.ErrDuplicateVehicle
	// when the vehicle number is already registered.
	CreateRecord(ctx context.Context, record *models.Record) error
	// FindRecord returns models.ErrRecordNotFound when nothing is stored under
	// vehicleNumber.
	FindRecord(ctx context.Context, vehicleNumber string) (*models.Record, error)
	// UpdateServiceStatus sets one service's status as a single atomic
	// read-modify-write and returns the stored result.
	UpdateServiceStatus(ctx context.Context, vehicleNumber, service string, status models.ServiceStatus) (*models.Record, error)
	ListRecords(ctx context.Context) ([]models.Record, error)
	Close(ctx context.Context) error
}

// StoreError wraps an I/O failure of the underlying store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
