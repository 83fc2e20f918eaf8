// Package garage ties the record codec, QR rendering, the record store,
// image export and status notifications into the registration and tracking
// operations.
package garage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage-tracking/internal/codec"
	"github.com/ukydev/garage-tracking/internal/db"
	"github.com/ukydev/garage-tracking/internal/models"
	"github.com/ukydev/garage-tracking/internal/notify"
	"github.com/ukydev/garage-tracking/internal/qr"
	"github.com/ukydev/garage-tracking/internal/storage"
)

// ExportError means the record was stored but its QR image could not be
// exported. The receipt returned alongside it is complete.
type ExportError struct {
	VehicleNumber string
	Err           error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("record %s saved but qr export failed: %v", e.VehicleNumber, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// Registration is the data entered on the registration form.
type Registration struct {
	FirstName     string
	LastName      string
	MobileNo      string
	Address       string
	Pincode       string
	VehicleType   string
	VehicleBrand  string
	VehicleNumber string
	Services      []string
}

// Receipt is the outcome of a successful registration.
type Receipt struct {
	Record   *models.Record
	Payload  []byte
	PNG      []byte
	Location string
}

// Service implements registration, lookup and status updates.
type Service struct {
	Records       db.RecordCollection
	Images        storage.ImageSink
	Notifier      notify.Notifier
	DefaultStatus models.ServiceStatus
	Logger        log.FieldLogger
}

// NewService returns a Service with pending as the default status, no image
// export and no notifications.
func NewService(records db.RecordCollection) *Service {
	return &Service{
		Records:       records,
		Notifier:      notify.NopNotifier{},
		DefaultStatus: models.DefaultStatus,
		Logger:        log.StandardLogger(),
	}
}

func (s *Service) logger() log.FieldLogger {
	if s.Logger == nil {
		return log.StandardLogger()
	}
	return s.Logger
}

func (s *Service) defaultStatus() models.ServiceStatus {
	if models.IsValidStatus(s.DefaultStatus) {
		return s.DefaultStatus
	}
	return models.DefaultStatus
}

// Register validates the form, renders its QR code, stores the record and
// exports the image. Nothing is written when validation fails. When only the
// export fails the receipt is returned together with an *ExportError.
func (s *Service) Register(ctx context.Context, reg Registration) (*Receipt, error) {
	services, err := models.SelectServices(reg.Services)
	if err != nil {
		return nil, &models.ValidationError{Field: "services", Reason: err.Error()}
	}

	rec := models.NewRecord(models.Record{
		FirstName:     strings.TrimSpace(reg.FirstName),
		LastName:      strings.TrimSpace(reg.LastName),
		MobileNo:      strings.TrimSpace(reg.MobileNo),
		Address:       strings.TrimSpace(reg.Address),
		Pincode:       strings.TrimSpace(reg.Pincode),
		VehicleType:   models.VehicleType(strings.TrimSpace(reg.VehicleType)),
		VehicleBrand:  strings.TrimSpace(reg.VehicleBrand),
		VehicleNumber: strings.TrimSpace(reg.VehicleNumber),
	}, services, s.defaultStatus())

	payload, err := codec.Encode(rec)
	if err != nil {
		return nil, err
	}
	logger := s.logger().WithField("vehicle_number", rec.VehicleNumber)
	if !models.IsKnownVehicleType(rec.VehicleType) {
		logger.WithField("vehicle_type", rec.VehicleType).Warn("Unknown vehicle type")
	}

	png, err := qr.Render(payload)
	if err != nil {
		return nil, err
	}
	rec.QRImage = png
	if err := s.Records.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}
	logger.WithFields(log.Fields{
		"services":    len(rec.Services),
		"total_price": rec.TotalPrice,
	}).Info("Vehicle registered")

	receipt := &Receipt{Record: rec, Payload: payload, PNG: png}
	if s.Images == nil {
		return receipt, nil
	}
	loc, err := s.Images.SaveQR(ctx, rec.VehicleNumber, png)
	if err != nil {
		logger.WithError(err).Error("Failed to export QR image")
		return receipt, &ExportError{VehicleNumber: rec.VehicleNumber, Err: err}
	}
	receipt.Location = loc
	return receipt, nil
}

// Lookup resolves a scanned payload to the stored record.
func (s *Service) Lookup(ctx context.Context, payload []byte) (*models.Record, error) {
	number, err := codec.VehicleNumber(payload)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(number) == "" {
		return nil, &models.ValidationError{Field: "vehicle number", Reason: "missing from payload"}
	}
	return s.Find(ctx, number)
}

func (s *Service) Find(ctx context.Context, vehicleNumber string) (*models.Record, error) {
	return s.Records.FindRecord(ctx, strings.TrimSpace(vehicleNumber))
}

func (s *Service) List(ctx context.Context) ([]models.Record, error) {
	return s.Records.ListRecords(ctx)
}

// UpdateStatus stores the new status of one service and then publishes a
// status event. Notification failures are logged only.
func (s *Service) UpdateStatus(ctx context.Context, vehicleNumber, service string, status models.ServiceStatus) (*models.Record, error) {
	if !models.IsValidStatus(status) {
		return nil, &models.ValidationError{Field: "service status", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	vehicleNumber = strings.TrimSpace(vehicleNumber)
	rec, err := s.Records.UpdateServiceStatus(ctx, vehicleNumber, service, status)
	if err != nil {
		return nil, err
	}
	logger := s.logger().WithFields(log.Fields{
		"vehicle_number": vehicleNumber,
		"service":        service,
		"status":         status,
	})
	logger.Info("Service status updated")

	if s.Notifier != nil {
		ev := notify.StatusEvent{
			VehicleNumber: vehicleNumber,
			Service:       service,
			Status:        status,
			AllCompleted:  AllCompleted(rec),
			At:            time.Now().UTC(),
		}
		if err := s.Notifier.StatusChanged(ctx, ev); err != nil {
			logger.WithError(err).Warn("Failed to publish status event")
		}
	}
	return rec, nil
}

// AllCompleted reports whether every service on r is completed. A record
// without services is never complete.
func AllCompleted(r *models.Record) bool {
	if len(r.ServiceStatus) == 0 {
		return false
	}
	for _, st := range r.ServiceStatus {
		if st != models.StatusCompleted {
			return false
		}
	}
	return true
}

// IsNotFound reports whether err means the vehicle or service does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, models.ErrRecordNotFound) || errors.Is(err, models.ErrServiceNotFound)
}
