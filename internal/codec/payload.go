// Package codec converts vehicle service records to and from the JSON text
// embedded in QR codes.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ukydev/garage-tracking/internal/models"
)

// DecodeError is returned when a payload is not a well-formed JSON object.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed QR payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// payload mirrors the keys printed into the QR code.
type payload struct {
	FirstName     string            `json:"First Name"`
	LastName      string            `json:"Last Name"`
	MobileNo      string            `json:"Mobile No"`
	Address       string            `json:"Address"`
	Pincode       string            `json:"Pincode"`
	VehicleType   string            `json:"Vehicle Type"`
	VehicleBrand  string            `json:"Vehicle Brand"`
	VehicleNumber string            `json:"Vehicle Number"`
	Services      []string          `json:"Services"`
	TotalPrice    int64             `json:"Total Price"`
	ServiceStatus map[string]string `json:"Service Status,omitempty"`
}

// rawPayload is the lenient shape used when reading: no field type is
// enforced so that one odd entry does not reject the whole code.
type rawPayload struct {
	FirstName     interface{} `json:"First Name"`
	LastName      interface{} `json:"Last Name"`
	MobileNo      interface{} `json:"Mobile No"`
	Address       interface{} `json:"Address"`
	Pincode       interface{} `json:"Pincode"`
	VehicleType   interface{} `json:"Vehicle Type"`
	VehicleBrand  interface{} `json:"Vehicle Brand"`
	VehicleNumber interface{} `json:"Vehicle Number"`
	Services      interface{} `json:"Services"`
	TotalPrice    interface{} `json:"Total Price"`
	ServiceStatus interface{} `json:"Service Status"`
}

// stringField coerces a scalar JSON value to text. Numbers keep their
// literal form so a numeric pincode or mobile number survives; objects,
// arrays and null become "".
func stringField(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

var serviceLabel = regexp.MustCompile(`^(.*\S)\s*\(\s*(?:₹|Rs\.?)\s*(\d+)\s*\)$`)

// Encode validates r and returns the payload for its QR code.
func Encode(r *models.Record) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	p := payload{
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		MobileNo:      r.MobileNo,
		Address:       r.Address,
		Pincode:       r.Pincode,
		VehicleType:   string(r.VehicleType),
		VehicleBrand:  r.VehicleBrand,
		VehicleNumber: r.VehicleNumber,
		Services:      make([]string, 0, len(r.Services)),
		TotalPrice:    models.TotalPrice(r.Services),
		ServiceStatus: make(map[string]string, len(r.ServiceStatus)),
	}
	for _, s := range r.Services {
		p.Services = append(p.Services, s.Label())
	}
	for name, st := range r.ServiceStatus {
		p.ServiceStatus[name] = string(st)
	}

	// Addresses may contain '&', keep it readable for other scanners.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a payload with the default status for services that have no
// status entry.
func Decode(data []byte) (*models.Record, error) {
	return DecodeWithDefault(data, models.DefaultStatus)
}

// DecodeWithDefault parses a payload. Only malformed JSON is an error; absent
// or unparseable optional parts fall back to defaults. The total is always
// recomputed from the services.
func DecodeWithDefault(data []byte, def models.ServiceStatus) (*models.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &DecodeError{Err: fmt.Errorf("payload is not a JSON object")}
	}

	var p rawPayload
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if dec.More() {
		return nil, &DecodeError{Err: fmt.Errorf("trailing data after JSON object")}
	}

	r := &models.Record{
		FirstName:     stringField(p.FirstName),
		LastName:      stringField(p.LastName),
		MobileNo:      stringField(p.MobileNo),
		Address:       stringField(p.Address),
		Pincode:       stringField(p.Pincode),
		VehicleType:   models.VehicleType(stringField(p.VehicleType)),
		VehicleBrand:  stringField(p.VehicleBrand),
		VehicleNumber: stringField(p.VehicleNumber),
	}

	services, _ := p.Services.([]interface{})
	statuses, _ := p.ServiceStatus.(map[string]interface{})

	seen := make(map[string]bool, len(services))
	for _, v := range services {
		label, ok := v.(string)
		if !ok {
			continue
		}
		opt := ParseServiceLabel(label)
		if opt.Name == "" || seen[opt.Name] {
			continue
		}
		seen[opt.Name] = true
		r.Services = append(r.Services, opt)
	}
	r.Recompute()

	r.ServiceStatus = make(models.StatusMap, len(r.Services))
	for _, s := range r.Services {
		st := def
		if raw, ok := statuses[s.Name].(string); ok {
			if parsed, err := models.ParseServiceStatus(raw); err == nil {
				st = parsed
			}
		}
		r.ServiceStatus[s.Name] = st
	}
	return r, nil
}

// ParseServiceLabel splits "Oil Change (₹300)" into name and price. A label
// without a price takes the catalog price, or zero for unknown services.
func ParseServiceLabel(label string) models.ServiceOption {
	label = strings.TrimSpace(label)
	if m := serviceLabel.FindStringSubmatch(label); m != nil {
		price, err := strconv.ParseInt(m[2], 10, 64)
		if err == nil {
			return models.ServiceOption{Name: strings.TrimSpace(m[1]), Price: price}
		}
	}
	if opt, ok := models.LookupService(label); ok {
		return opt
	}
	return models.ServiceOption{Name: label}
}

// VehicleNumber extracts only the vehicle number from a payload.
func VehicleNumber(data []byte) (string, error) {
	r, err := Decode(data)
	if err != nil {
		return "", err
	}
	return r.VehicleNumber, nil
}
