package models

import "fmt"

// ServiceOption is a service offered by the garage together with its unit
// price in rupees.
type ServiceOption struct {
	Name  string `bson:"name" json:"name"`
	Price int64  `bson:"price" json:"price"`
}

// Label renders the option the way it is shown on forms and in QR payloads.
func (o ServiceOption) Label() string {
	return fmt.Sprintf("%s (₹%d)", o.Name, o.Price)
}

// Catalog is the fixed list of services the garage offers, in display order.
var Catalog = []ServiceOption{
	{Name: "Washing", Price: 100},
	{Name: "Tyre Changing", Price: 200},
	{Name: "Oil Change", Price: 300},
	{Name: "Engine Checkup", Price: 400},
	{Name: "Brake Adjustment", Price: 150},
	{Name: "Battery Replacement", Price: 500},
}

// LookupService finds a catalog entry by name.
func LookupService(name string) (ServiceOption, bool) {
	for _, o := range Catalog {
		if o.Name == name {
			return o, true
		}
	}
	return ServiceOption{}, false
}

// SelectServices resolves catalog names into options. Unknown names are an
// error; repeated names are kept once.
func SelectServices(names []string) ([]ServiceOption, error) {
	seen := make(map[string]bool, len(names))
	out := make([]ServiceOption, 0, len(names))
	for _, n := range names {
		o, ok := LookupService(n)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not in the catalog", ErrServiceNotFound, n)
		}
		if seen[o.Name] {
			continue
		}
		seen[o.Name] = true
		out = append(out, o)
	}
	return out, nil
}

// TotalPrice sums the unit prices of services.
func TotalPrice(services []ServiceOption) int64 {
	var total int64
	for _, s := range services {
		total += s.Price
	}
	return total
}
