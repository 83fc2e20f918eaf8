package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FrameSource yields frames until it returns io.EOF. Close releases the
// device and is called exactly once by the Scanner.
type FrameSource interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// FrameError is a single frame that could not be read. The source stays
// usable and the scanner moves on to the next frame.
type FrameError struct {
	Frame string
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %s: %v", e.Frame, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// Opener acquires a frame source at the start of a scan.
type Opener func(ctx context.Context) (FrameSource, error)

// DirSource plays back image files as camera frames. It stands in for a
// webcam: point it at a directory of snapshots or at a single image.
type DirSource struct {
	files    []string
	interval time.Duration
	pos      int
	closed   bool
}

var frameExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// OpenDir returns an Opener for path. A directory yields its PNG/JPEG files in
// name order; a file yields itself. interval delays every frame after the
// first.
func OpenDir(path string, interval time.Duration) Opener {
	return func(ctx context.Context) (FrameSource, error) {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("open frame source: %w", err)
		}
		if !fi.IsDir() {
			return &DirSource{files: []string{path}, interval: interval}, nil
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("open frame source: %w", err)
		}
		var files []string
		for _, e := range entries {
			if e.IsDir() || !frameExts[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			files = append(files, filepath.Join(path, e.Name()))
		}
		sort.Strings(files)
		return &DirSource{files: files, interval: interval}, nil
	}
}

func (s *DirSource) Next(ctx context.Context) (image.Image, error) {
	if s.closed {
		return nil, fmt.Errorf("frame source closed")
	}
	if s.pos >= len(s.files) {
		return nil, io.EOF
	}
	if s.pos > 0 && s.interval > 0 {
		t := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	name := s.files[s.pos]
	s.pos++
	f, err := os.Open(name)
	if err != nil {
		return nil, &FrameError{Frame: filepath.Base(name), Err: err}
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &FrameError{Frame: filepath.Base(name), Err: err}
	}
	return img, nil
}

func (s *DirSource) Close() error {
	s.closed = true
	return nil
}
