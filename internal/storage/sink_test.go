package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"KA01AB1234", "KA01AB1234_qr_code.png"},
		{"  MH12-EF_9012 ", "MH12-EF_9012_qr_code.png"},
		{"DL 3C/AB 12", "DL_3C_AB_12_5c104758_qr_code.png"},
		{"../../etc", "______etc_cb7d5d3f_qr_code.png"},
		{"KA 01", "KA_01_ab0b1088_qr_code.png"},
		{"KA_01", "KA_01_qr_code.png"},
		{"", "unnamed_qr_code.png"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.in))
		})
	}
}

func TestDirSink_SaveQR(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "qr_codes")
	sink := NewDirSink(dir)

	loc, err := sink.SaveQR(context.Background(), "KA01AB1234", []byte("png-1"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "KA01AB1234_qr_code.png"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "png-1", string(data))

	// overwrite in place
	_, err = sink.SaveQR(context.Background(), "KA01AB1234", []byte("png-2"))
	require.NoError(t, err)
	data, err = os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "png-2", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestDirSink_SanitisedNamesDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	sink := NewDirSink(dir)

	a, err := sink.SaveQR(context.Background(), "KA 01", []byte("spaced"))
	require.NoError(t, err)
	b, err := sink.SaveQR(context.Background(), "KA_01", []byte("underscored"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	data, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "spaced", string(data))
	data, err = os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, "underscored", string(data))
}

func TestDirSink_Errors(t *testing.T) {
	_, err := (&DirSink{}).SaveQR(context.Background(), "KA01AB1234", nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewDirSink(t.TempDir()).SaveQR(ctx, "KA01AB1234", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

type failSink struct{}

func (failSink) SaveQR(context.Context, string, []byte) (string, error) {
	return "", errors.New("bucket offline")
}

func TestMultiSink(t *testing.T) {
	dir := t.TempDir()
	ok := MultiSink{NewDirSink(dir), NewDirSink(filepath.Join(dir, "copy"))}
	loc, err := ok.SaveQR(context.Background(), "TN09XY0001", []byte("x"))
	require.NoError(t, err)
	assert.Contains(t, loc, filepath.Join(dir, "copy", "TN09XY0001_qr_code.png"))

	bad := MultiSink{NewDirSink(dir), failSink{}}
	loc, err = bad.SaveQR(context.Background(), "TN09XY0001", []byte("x"))
	assert.EqualError(t, err, "bucket offline")
	assert.Equal(t, filepath.Join(dir, "TN09XY0001_qr_code.png"), loc)
}

func TestNewMinIOSink_RequiresSettings(t *testing.T) {
	_, err := NewMinIOSink(context.Background(), MinIOConfig{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}
