package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Record is a vehicle registered for service, keyed by VehicleNumber.
type Record struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	FirstName     string             `bson:"first_name" json:"first_name"`
	LastName      string             `bson:"last_name" json:"last_name"`
	MobileNo      string             `bson:"mobile_no" json:"mobile_no"`
	Address       string             `bson:"address" json:"address"`
	Pincode       string             `bson:"pincode" json:"pincode"`
	VehicleType   VehicleType        `bson:"vehicle_type" json:"vehicle_type"`
	VehicleBrand  string             `bson:"vehicle_brand" json:"vehicle_brand"`
	VehicleNumber string             `bson:"vehicle_number" json:"vehicle_number"`
	Services      []ServiceOption    `bson:"services" json:"services"`
	TotalPrice    int64              `bson:"total_price" json:"total_price"`
	ServiceStatus StatusMap          `bson:"service_status" json:"service_status"`
	QRImage       []byte             `bson:"qr_image,omitempty" json:"qr_image,omitempty"`
	Version       int64              `bson:"version" json:"version"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// NewRecord builds a record for the selected services. Repeated service
// names are collapsed, the total is computed and every service starts at
// status.
func NewRecord(r Record, services []ServiceOption, status ServiceStatus) *Record {
	out := r
	out.Services = dedupeServices(services)
	out.TotalPrice = TotalPrice(out.Services)
	out.ServiceStatus = InitStatusMapWith(out.Services, status)
	out.QRImage = nil
	return &out
}

// FullName joins first and last name.
func (r *Record) FullName() string {
	if r.LastName == "" {
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}

// Recompute resets TotalPrice from Services. Stored totals are never trusted.
func (r *Record) Recompute() {
	r.TotalPrice = TotalPrice(r.Services)
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	out := *r
	if r.Services != nil {
		out.Services = append([]ServiceOption(nil), r.Services...)
	}
	if r.ServiceStatus != nil {
		out.ServiceStatus = r.ServiceStatus.Clone()
	}
	if r.QRImage != nil {
		out.QRImage = append([]byte(nil), r.QRImage...)
	}
	return &out
}

// Validate checks the required fields, the mobile number and that the status
// map covers exactly the selected services.
func (r *Record) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"first name", r.FirstName},
		{"last name", r.LastName},
		{"mobile number", r.MobileNo},
		{"vehicle type", string(r.VehicleType)},
		{"vehicle brand", r.VehicleBrand},
		{"vehicle number", r.VehicleNumber},
	}
	for _, f := range required {
		if f.value == "" {
			return &ValidationError{Field: f.field, Reason: "is required"}
		}
	}
	if err := ValidateMobile(r.MobileNo); err != nil {
		return err
	}

	seen := make(map[string]bool, len(r.Services))
	for _, s := range r.Services {
		if s.Name == "" {
			return &ValidationError{Field: "services", Reason: "service name is empty"}
		}
		if seen[s.Name] {
			return &ValidationError{Field: "services", Reason: "duplicate service " + s.Name}
		}
		seen[s.Name] = true
	}
	if len(r.ServiceStatus) != len(seen) {
		return &ValidationError{Field: "service status", Reason: "must have one entry per selected service"}
	}
	for name, st := range r.ServiceStatus {
		if !seen[name] {
			return &ValidationError{Field: "service status", Reason: "unknown service " + name}
		}
		if !IsValidStatus(st) {
			return &ValidationError{Field: "service status", Reason: "invalid status " + string(st) + " for " + name}
		}
	}
	return nil
}

// ValidateMobile requires exactly 10 ASCII digits.
func ValidateMobile(mobile string) error {
	if len(mobile) != 10 {
		return &ValidationError{Field: "mobile number", Reason: "must be exactly 10 digits"}
	}
	for i := 0; i < len(mobile); i++ {
		if mobile[i] < '0' || mobile[i] > '9' {
			return &ValidationError{Field: "mobile number", Reason: "must be exactly 10 digits"}
		}
	}
	return nil
}

func dedupeServices(services []ServiceOption) []ServiceOption {
	seen := make(map[string]bool, len(services))
	out := make([]ServiceOption, 0, len(services))
	for _, s := range services {
		if seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		out = append(out, s)
	}
	return out
}
