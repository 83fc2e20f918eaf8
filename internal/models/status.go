package models

import (
	"fmt"
	"sort"
	"strings"
)

// ServiceStatus is the progress of a single service on a vehicle.
type ServiceStatus string

const (
	StatusPending   ServiceStatus = "Pending"
	StatusInProcess ServiceStatus = "In Process"
	StatusCompleted ServiceStatus = "Completed"
)

// DefaultStatus is assigned to every selected service when a record is created.
const DefaultStatus = StatusPending

// Statuses lists every status in workflow order.
var Statuses = []ServiceStatus{StatusPending, StatusInProcess, StatusCompleted}

// IsValidStatus checks if a status is one of the known values
func IsValidStatus(status ServiceStatus) bool {
	switch status {
	case StatusPending, StatusInProcess, StatusCompleted:
		return true
	default:
		return false
	}
}

// ParseServiceStatus accepts the canonical names as well as the spellings
// older payloads used ("in process", "InProcess", "in_process", ...).
func ParseServiceStatus(s string) (ServiceStatus, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "", "-", "", " ", "").Replace(norm)
	switch norm {
	case "pending":
		return StatusPending, nil
	case "inprocess", "inprogress":
		return StatusInProcess, nil
	case "completed", "complete", "done":
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("unknown service status: %q", s)
	}
}

// StatusMap maps a service name to its current status.
type StatusMap map[string]ServiceStatus

// InitStatusMap sets every selected service to DefaultStatus.
func InitStatusMap(services []ServiceOption) StatusMap {
	return InitStatusMapWith(services, DefaultStatus)
}

// InitStatusMapWith sets every selected service to status.
func InitStatusMapWith(services []ServiceOption, status ServiceStatus) StatusMap {
	m := make(StatusMap, len(services))
	for _, s := range services {
		m[s.Name] = status
	}
	return m
}

// Update returns a copy of m with service set to status. The receiver is
// never modified.
func (m StatusMap) Update(service string, status ServiceStatus) (StatusMap, error) {
	if _, ok := m[service]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrServiceNotFound, service)
	}
	if !IsValidStatus(status) {
		return nil, fmt.Errorf("invalid status %q for service %q", status, service)
	}
	out := m.Clone()
	out[service] = status
	return out, nil
}

// Clone returns an independent copy of m.
func (m StatusMap) Clone() StatusMap {
	out := make(StatusMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Services returns the service names in m, sorted.
func (m StatusMap) Services() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Equal reports whether m and other hold the same entries.
func (m StatusMap) Equal(other StatusMap) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
