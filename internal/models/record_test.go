package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() *Record {
	return NewRecord(Record{
		FirstName:     "Asha",
		LastName:      "Rao",
		MobileNo:      "9876543210",
		Address:       "12 MG Road",
		Pincode:       "560001",
		VehicleType:   VehicleCar,
		VehicleBrand:  "Maruti",
		VehicleNumber: "KA01AB1234",
	}, []ServiceOption{{Name: "Washing", Price: 100}, {Name: "Oil Change", Price: 300}}, DefaultStatus)
}

func TestNewRecord(t *testing.T) {
	r := validRecord()

	assert.Equal(t, int64(400), r.TotalPrice)
	assert.Equal(t, StatusMap{"Washing": StatusPending, "Oil Change": StatusPending}, r.ServiceStatus)
	assert.NoError(t, r.Validate())
}

func TestNewRecord_CollapsesRepeatedServices(t *testing.T) {
	r := NewRecord(Record{VehicleNumber: "X"}, []ServiceOption{
		{Name: "Washing", Price: 100},
		{Name: "Washing", Price: 100},
		{Name: "Oil Change", Price: 300},
	}, StatusPending)

	assert.Len(t, r.Services, 2)
	assert.Equal(t, int64(400), r.TotalPrice)
	assert.Len(t, r.ServiceStatus, 2)
}

func TestRecord_TotalPriceMatchesServices(t *testing.T) {
	for i := 0; i <= len(Catalog); i++ {
		services := Catalog[:i]
		r := NewRecord(Record{}, services, DefaultStatus)
		var sum int64
		for _, s := range services {
			sum += s.Price
		}
		assert.Equal(t, sum, r.TotalPrice)
	}
}

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Record)
		field  string
	}{
		{"missing first name", func(r *Record) { r.FirstName = "" }, "first name"},
		{"missing last name", func(r *Record) { r.LastName = "" }, "last name"},
		{"missing mobile", func(r *Record) { r.MobileNo = "" }, "mobile number"},
		{"missing vehicle type", func(r *Record) { r.VehicleType = "" }, "vehicle type"},
		{"missing vehicle brand", func(r *Record) { r.VehicleBrand = "" }, "vehicle brand"},
		{"missing vehicle number", func(r *Record) { r.VehicleNumber = "" }, "vehicle number"},
		{"short mobile", func(r *Record) { r.MobileNo = "12345" }, "mobile number"},
		{"long mobile", func(r *Record) { r.MobileNo = "98765432101" }, "mobile number"},
		{"letters in mobile", func(r *Record) { r.MobileNo = "98765abcde" }, "mobile number"},
		{"non-ascii digits", func(r *Record) { r.MobileNo = "९८७६५४३२१०" }, "mobile number"},
		{"status for unselected service", func(r *Record) { r.ServiceStatus["Tyre Changing"] = StatusPending }, "service status"},
		{"missing status entry", func(r *Record) { delete(r.ServiceStatus, "Washing") }, "service status"},
		{"invalid status value", func(r *Record) { r.ServiceStatus["Washing"] = "Lost" }, "service status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(r)
			err := r.Validate()
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestRecord_OptionalFieldsMayBeEmpty(t *testing.T) {
	r := validRecord()
	r.Address = ""
	r.Pincode = ""
	assert.NoError(t, r.Validate())
}

func TestRecord_Clone(t *testing.T) {
	r := validRecord()
	r.QRImage = []byte{1, 2, 3}
	c := r.Clone()

	c.ServiceStatus["Washing"] = StatusCompleted
	c.Services[0].Price = 1
	c.QRImage[0] = 9

	assert.Equal(t, StatusPending, r.ServiceStatus["Washing"])
	assert.Equal(t, int64(100), r.Services[0].Price)
	assert.Equal(t, byte(1), r.QRImage[0])
}

func TestSelectServices(t *testing.T) {
	opts, err := SelectServices([]string{"Oil Change", "Washing", "Oil Change"})
	require.NoError(t, err)
	assert.Equal(t, []ServiceOption{{Name: "Oil Change", Price: 300}, {Name: "Washing", Price: 100}}, opts)

	_, err = SelectServices([]string{"Paint Job"})
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestServiceOption_Label(t *testing.T) {
	assert.Equal(t, "Washing (₹100)", ServiceOption{Name: "Washing", Price: 100}.Label())
}

func TestIsKnownVehicleType(t *testing.T) {
	assert.True(t, IsKnownVehicleType(VehicleBike))
	assert.False(t, IsKnownVehicleType("Tractor"))
}
