package models

// VehicleType is the kind of vehicle brought in for service.
type VehicleType string

const (
	VehicleCar   VehicleType = "Car"
	VehicleBike  VehicleType = "Bike"
	VehicleTruck VehicleType = "Truck"
)

// VehicleTypes are the types offered on the registration form. Other
// non-empty values are still accepted.
var VehicleTypes = []VehicleType{VehicleCar, VehicleBike, VehicleTruck}

// IsKnownVehicleType checks if t is one of VehicleTypes
func IsKnownVehicleType(t VehicleType) bool {
	for _, v := range VehicleTypes {
		if v == t {
			return true
		}
	}
	return false
}
