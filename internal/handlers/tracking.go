package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ukydev/garage-tracking/internal/capture"
	"github.com/ukydev/garage-tracking/internal/codec"
	"github.com/ukydev/garage-tracking/internal/models"
)

// StatusEditor is the status picker of one service. Current is the stored
// value, Selected what the user picked but has not applied yet.
type StatusEditor struct {
	Option   models.ServiceOption
	Current  models.ServiceStatus
	Selected models.ServiceStatus
}

// Dirty reports whether the selection differs from the stored status.
func (e StatusEditor) Dirty() bool { return e.Selected != e.Current }

// TrackingState is everything the tracking screen shows.
type TrackingState struct {
	Record  *models.Record
	Editors []StatusEditor
	Message string
	Err     error
}

type TrackingHandler struct {
	garage Garage
}

func NewTrackingHandler(g Garage) *TrackingHandler {
	return &TrackingHandler{garage: g}
}

func editorsFor(r *models.Record) []StatusEditor {
	eds := make([]StatusEditor, 0, len(r.Services))
	for _, o := range r.Services {
		st := r.ServiceStatus[o.Name]
		eds = append(eds, StatusEditor{Option: o, Current: st, Selected: st})
	}
	return eds
}

// HandleScan turns a finished scan into the state showing the scanned
// vehicle.
func (h *TrackingHandler) HandleScan(ctx context.Context, res capture.Result) TrackingState {
	if res.Err != nil {
		return TrackingState{Err: res.Err, Message: scanMessage(res.Err)}
	}
	rec, err := h.garage.Lookup(ctx, res.Payload)
	if err != nil {
		return TrackingState{Err: err, Message: lookupMessage(err)}
	}
	return TrackingState{
		Record:  rec,
		Editors: editorsFor(rec),
		Message: fmt.Sprintf("%s, %s %s (%s)", rec.FullName(), rec.VehicleBrand, rec.VehicleType, rec.VehicleNumber),
	}
}

// Select changes the pending choice of editor i only.
func (h *TrackingHandler) Select(state TrackingState, i int, status models.ServiceStatus) TrackingState {
	if i < 0 || i >= len(state.Editors) {
		state.Err = fmt.Errorf("no service at position %d", i)
		return state
	}
	if !models.IsValidStatus(status) {
		state.Err = &models.ValidationError{Field: "service status", Reason: fmt.Sprintf("unknown status %q", status)}
		return state
	}
	state.Editors = append([]StatusEditor(nil), state.Editors...)
	state.Editors[i].Selected = status
	state.Err = nil
	return state
}

// Apply stores the selection of editor i. Other editors keep their pending
// selections.
func (h *TrackingHandler) Apply(ctx context.Context, state TrackingState, i int) TrackingState {
	if state.Record == nil {
		state.Err = errors.New("no vehicle scanned")
		state.Message = "Scan a QR code first"
		return state
	}
	if i < 0 || i >= len(state.Editors) {
		state.Err = fmt.Errorf("no service at position %d", i)
		return state
	}
	ed := state.Editors[i]
	rec, err := h.garage.UpdateStatus(ctx, state.Record.VehicleNumber, ed.Option.Name, ed.Selected)
	if err != nil {
		state.Err = err
		state.Message = fmt.Sprintf("Could not update %s: %v", ed.Option.Name, err)
		return state
	}

	eds := editorsFor(rec)
	for j := range eds {
		if j != i && j < len(state.Editors) && state.Editors[j].Option.Name == eds[j].Option.Name {
			eds[j].Selected = state.Editors[j].Selected
		}
	}
	return TrackingState{
		Record:  rec,
		Editors: eds,
		Message: fmt.Sprintf("%s set to %s", ed.Option.Name, ed.Selected),
	}
}

func scanMessage(err error) string {
	switch {
	case errors.Is(err, capture.ErrScanInProgress):
		return "A scan is already running"
	case errors.Is(err, capture.ErrScanCancelled):
		return "Scan cancelled"
	case errors.Is(err, capture.ErrSourceExhausted):
		return "No QR code found"
	default:
		return fmt.Sprintf("Camera error: %v", err)
	}
}

func lookupMessage(err error) string {
	var de *codec.DecodeError
	switch {
	case errors.Is(err, models.ErrRecordNotFound):
		return "No record found for this vehicle"
	case errors.As(err, &de), models.IsValidationError(err):
		return "QR code does not contain a vehicle record"
	default:
		return fmt.Sprintf("Lookup failed: %v", err)
	}
}
