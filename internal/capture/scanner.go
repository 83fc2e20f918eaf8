// Package capture drives a QR decoder over frames from a camera-like source
// on a single background worker.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage-tracking/internal/qr"
)

var (
	ErrScanInProgress  = errors.New("a scan is already running")
	ErrScanCancelled   = errors.New("scan cancelled")
	ErrSourceExhausted = errors.New("frame source ended without a QR code")
)

// Decoder extracts a payload from one frame.
type Decoder func(image.Image) ([]byte, error)

// Result is what a scan worker hands back to its caller.
type Result struct {
	SessionID string
	Payload   []byte
	Frames    int
	Err       error
}

// Scanner runs at most one scan at a time.
type Scanner struct {
	open   Opener
	decode Decoder
	logger log.FieldLogger

	mu     sync.Mutex
	active bool
}

// NewScanner creates a scanner. A nil decoder means qr.Scan and a nil logger
// means the standard logrus logger.
func NewScanner(open Opener, decode Decoder, logger log.FieldLogger) *Scanner {
	if decode == nil {
		decode = qr.Scan
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Scanner{open: open, decode: decode, logger: logger}
}

// Active reports whether a scan worker is running.
func (s *Scanner) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Start launches the scan worker. The returned channel receives exactly one
// Result and is then closed; by that time the frame source has been released.
// Cancel ctx to stop the scan.
func (s *Scanner) Start(ctx context.Context) (<-chan Result, error) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil, ErrScanInProgress
	}
	s.active = true
	s.mu.Unlock()

	id := uuid.NewString()
	out := make(chan Result, 1)
	go func() {
		res := s.run(ctx, id)
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		out <- res
		close(out)
	}()
	return out, nil
}

// Scan is Start followed by a wait for the result.
func (s *Scanner) Scan(ctx context.Context) Result {
	ch, err := s.Start(ctx)
	if err != nil {
		return Result{Err: err}
	}
	return <-ch
}

func (s *Scanner) run(ctx context.Context, id string) (res Result) {
	res.SessionID = id
	logger := s.logger.WithField("scan_id", id)

	src, err := s.open(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	logger.Info("Scan started")
	defer func() {
		if err := src.Close(); err != nil {
			logger.WithError(err).Warn("Failed to release frame source")
		}
		logger.WithFields(log.Fields{"frames": res.Frames, "found": res.Err == nil}).Info("Scan finished")
	}()

	for {
		if err := ctx.Err(); err != nil {
			res.Err = fmt.Errorf("%w: %v", ErrScanCancelled, err)
			return res
		}
		frame, err := src.Next(ctx)
		var frameErr *FrameError
		if errors.As(err, &frameErr) {
			res.Frames++
			logger.WithError(err).WithField("frame", res.Frames).Debug("Skipping unreadable frame")
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				res.Err = ErrSourceExhausted
			case ctx.Err() != nil:
				res.Err = fmt.Errorf("%w: %v", ErrScanCancelled, ctx.Err())
			default:
				res.Err = fmt.Errorf("read frame: %w", err)
			}
			return res
		}
		res.Frames++

		payload, err := s.decode(frame)
		if err != nil {
			logger.WithError(err).WithField("frame", res.Frames).Debug("No code in frame")
			continue
		}
		res.Payload = payload
		return res
	}
}
