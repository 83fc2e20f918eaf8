package handlers

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage-tracking/internal/garage"
	"github.com/ukydev/garage-tracking/internal/models"
)

// ServiceChoice is one catalog entry on the form.
type ServiceChoice struct {
	Option  models.ServiceOption
	Checked bool
}

// FormState is everything the registration form shows.
type FormState struct {
	FirstName     string
	LastName      string
	MobileNo      string
	Address       string
	Pincode       string
	VehicleType   string
	VehicleBrand  string
	VehicleNumber string
	Services      []ServiceChoice

	Message   string
	Err       error
	QRPreview []byte
	Location  string
}

// NewFormState returns an empty form listing the whole catalog.
func NewFormState() FormState {
	choices := make([]ServiceChoice, len(models.Catalog))
	for i, o := range models.Catalog {
		choices[i] = ServiceChoice{Option: o}
	}
	return FormState{Services: choices}
}

// Toggle checks or unchecks the named service.
func (s FormState) Toggle(name string, checked bool) FormState {
	s.Services = append([]ServiceChoice(nil), s.Services...)
	for i := range s.Services {
		if s.Services[i].Option.Name == name {
			s.Services[i].Checked = checked
		}
	}
	return s
}

// Selected lists the checked service names in catalog order.
func (s FormState) Selected() []string {
	var names []string
	for _, c := range s.Services {
		if c.Checked {
			names = append(names, c.Option.Name)
		}
	}
	return names
}

// Total is the running price of the checked services.
func (s FormState) Total() int64 {
	var total int64
	for _, c := range s.Services {
		if c.Checked {
			total += c.Option.Price
		}
	}
	return total
}

func (s FormState) Registration() garage.Registration {
	return garage.Registration{
		FirstName:     s.FirstName,
		LastName:      s.LastName,
		MobileNo:      s.MobileNo,
		Address:       s.Address,
		Pincode:       s.Pincode,
		VehicleType:   s.VehicleType,
		VehicleBrand:  s.VehicleBrand,
		VehicleNumber: s.VehicleNumber,
		Services:      s.Selected(),
	}
}

type FormHandler struct {
	garage Garage
}

func NewFormHandler(g Garage) *FormHandler {
	return &FormHandler{garage: g}
}

// Submit registers the form contents. On failure the entered fields are kept
// so the user can correct them; on success the form is cleared and carries
// the QR preview.
func (h *FormHandler) Submit(ctx context.Context, state FormState) FormState {
	receipt, err := h.garage.Register(ctx, state.Registration())

	var exportErr *garage.ExportError
	if err != nil && !(errors.As(err, &exportErr) && receipt != nil) {
		next := state
		next.Services = append([]ServiceChoice(nil), state.Services...)
		next.Err = err
		next.Message = formMessage(err)
		next.QRPreview = nil
		next.Location = ""
		log.WithError(err).WithField("vehicle_number", state.VehicleNumber).Debug("Registration rejected")
		return next
	}

	next := NewFormState()
	next.QRPreview = receipt.PNG
	next.Location = receipt.Location
	next.Message = fmt.Sprintf("Data saved for %s. Total price: ₹%d", receipt.Record.VehicleNumber, receipt.Record.TotalPrice)
	if exportErr != nil {
		next.Err = err
		next.Message += ". QR image could not be saved: " + exportErr.Err.Error()
	}
	return next
}

func formMessage(err error) string {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve) && ve.Field == "mobile number" && ve.Reason != "is required":
		return "Mobile number must be exactly 10 digits"
	case errors.As(err, &ve) && ve.Reason == "is required":
		return fmt.Sprintf("Please fill in the %s", ve.Field)
	case errors.As(err, &ve):
		return fmt.Sprintf("Invalid %s: %s", ve.Field, ve.Reason)
	case errors.Is(err, models.ErrDuplicateVehicle):
		return "This vehicle is already registered"
	default:
		return fmt.Sprintf("Could not save record: %v", err)
	}
}
