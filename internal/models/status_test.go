package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServiceStatus(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected ServiceStatus
		wantErr  bool
	}{
		{"canonical pending", "Pending", StatusPending, false},
		{"canonical in process", "In Process", StatusInProcess, false},
		{"canonical completed", "Completed", StatusCompleted, false},
		{"lower case legacy", "in process", StatusInProcess, false},
		{"camel case", "InProcess", StatusInProcess, false},
		{"snake case", "in_process", StatusInProcess, false},
		{"padded", "  completed ", StatusCompleted, false},
		{"unknown", "cancelled", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServiceStatus(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestInitStatusMap(t *testing.T) {
	services := []ServiceOption{{Name: "Washing", Price: 100}, {Name: "Oil Change", Price: 300}}

	m := InitStatusMap(services)
	assert.Equal(t, StatusMap{"Washing": StatusPending, "Oil Change": StatusPending}, m)

	m = InitStatusMapWith(services, StatusInProcess)
	assert.Equal(t, StatusMap{"Washing": StatusInProcess, "Oil Change": StatusInProcess}, m)

	assert.Empty(t, InitStatusMap(nil))
}

func TestStatusMap_Update(t *testing.T) {
	base := StatusMap{"Washing": StatusPending, "Oil Change": StatusPending, "Engine Checkup": StatusInProcess}

	t.Run("updates one entry and leaves the input untouched", func(t *testing.T) {
		out, err := base.Update("Washing", StatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, out["Washing"])
		assert.Equal(t, StatusPending, base["Washing"])
	})

	t.Run("is idempotent", func(t *testing.T) {
		for _, name := range base.Services() {
			for _, st := range Statuses {
				once, err := base.Update(name, st)
				require.NoError(t, err)
				twice, err := once.Update(name, st)
				require.NoError(t, err)
				assert.True(t, once.Equal(twice), "%s -> %s", name, st)
			}
		}
	})

	t.Run("never touches other services", func(t *testing.T) {
		for _, name := range base.Services() {
			for _, st := range Statuses {
				out, err := base.Update(name, st)
				require.NoError(t, err)
				for _, other := range base.Services() {
					if other == name {
						continue
					}
					assert.Equal(t, base[other], out[other])
				}
				assert.Len(t, out, len(base))
			}
		}
	})

	t.Run("unknown service", func(t *testing.T) {
		_, err := base.Update("Tyre Changing", StatusCompleted)
		assert.ErrorIs(t, err, ErrServiceNotFound)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := base.Update("Washing", ServiceStatus("Cancelled"))
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrServiceNotFound)
	})
}

func TestStatusMap_Services(t *testing.T) {
	m := StatusMap{"Washing": StatusPending, "Battery Replacement": StatusPending, "Oil Change": StatusCompleted}
	assert.Equal(t, []string{"Battery Replacement", "Oil Change", "Washing"}, m.Services())
}
