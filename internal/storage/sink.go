// Package storage exports rendered QR images outside the record store.
package storage

import (
	"context"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage-tracking/internal/fsx"
)

// ImageSink stores a QR image for a vehicle and returns where it went.
type ImageSink interface {
	SaveQR(ctx context.Context, vehicleNumber string, png []byte) (string, error)
}

// FileName returns the export name for a vehicle, e.g. KA01AB1234_qr_code.png.
// Characters outside [A-Za-z0-9_-] become '_' and the name then gets a hash
// of the vehicle number, so "KA 01" and "KA_01" never share a file.
func FileName(vehicleNumber string) string {
	number := strings.TrimSpace(vehicleNumber)
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, number)
	switch {
	case clean == "":
		clean = "unnamed"
	case clean != number:
		h := fnv.New32a()
		h.Write([]byte(number))
		clean = fmt.Sprintf("%s_%08x", clean, h.Sum32())
	}
	return clean + "_qr_code.png"
}

// DirSink writes QR images into a local directory.
type DirSink struct {
	Dir string
}

func NewDirSink(dir string) *DirSink {
	return &DirSink{Dir: dir}
}

func (s *DirSink) SaveQR(ctx context.Context, vehicleNumber string, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Dir == "" {
		return "", fmt.Errorf("qr output directory not configured")
	}
	name := FileName(vehicleNumber)
	if err := fsx.WriteFileAtomic(s.Dir, name, png, 0o644); err != nil {
		return "", fmt.Errorf("save qr image: %w", err)
	}
	path := filepath.Join(s.Dir, name)
	log.WithFields(log.Fields{"vehicle_number": vehicleNumber, "path": path}).Info("QR image saved")
	return path, nil
}

// MultiSink fans an image out to several sinks. Locations are joined with
// ", "; the first failure stops the fan-out.
type MultiSink []ImageSink

func (m MultiSink) SaveQR(ctx context.Context, vehicleNumber string, png []byte) (string, error) {
	var locs []string
	for _, s := range m {
		loc, err := s.SaveQR(ctx, vehicleNumber, png)
		if err != nil {
			return strings.Join(locs, ", "), err
		}
		locs = append(locs, loc)
	}
	return strings.Join(locs, ", "), nil
}
