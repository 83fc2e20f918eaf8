// Package qr renders payloads as QR code images and reads them back.
package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // frames may come from JPEG snapshots
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	gozxingqr "github.com/makiuchi-d/gozxing/qrcode"
	qrcode "github.com/skip2/go-qrcode"
)

// ErrNoCodeFound means the image did not contain a readable QR code.
var ErrNoCodeFound = errors.New("no QR code found")

// moduleSize is the pixel width of one QR module. The quiet zone is the
// library default of four modules.
const moduleSize = 10

// Render encodes payload as a PNG QR code with low error correction.
func Render(payload []byte) ([]byte, error) {
	q, err := qrcode.New(string(payload), qrcode.Low)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	png, err := q.PNG(-moduleSize)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}

// RenderImage is Render without the PNG step.
func RenderImage(payload []byte) (image.Image, error) {
	q, err := qrcode.New(string(payload), qrcode.Low)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return q.Image(-moduleSize), nil
}

// Scan decodes the first QR code in img.
func Scan(img image.Image) ([]byte, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCodeFound, err)
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER:    true,
		gozxing.DecodeHintType_CHARACTER_SET: "UTF-8",
	}
	result, err := gozxingqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCodeFound, err)
	}
	return []byte(result.GetText()), nil
}

// ScanPNG decodes an encoded image (PNG or JPEG) and scans it.
func ScanPNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return Scan(img)
}
