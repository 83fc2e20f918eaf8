package qr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderScan_RoundTrip(t *testing.T) {
	payloads := []string{
		"KA01AB1234",
		`{"First Name":"Asha","Vehicle Number":"KA01AB1234","Services":["Washing (₹100)","Oil Change (₹300)"],"Total Price":400}`,
	}
	for _, p := range payloads {
		data, err := Render([]byte(p))
		require.NoError(t, err)
		assert.Equal(t, []byte("\x89PNG"), data[:4])

		got, err := ScanPNG(data)
		require.NoError(t, err)
		assert.Equal(t, p, string(got))
	}
}

func TestRenderImage(t *testing.T) {
	img, err := RenderImage([]byte("MH12EF9012"))
	require.NoError(t, err)
	b := img.Bounds()
	assert.Equal(t, b.Dx(), b.Dy())
	assert.Zero(t, b.Dx()%moduleSize)

	got, err := Scan(img)
	require.NoError(t, err)
	assert.Equal(t, "MH12EF9012", string(got))
}

func TestScan_NoCode(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 200, 200))
	for i := range blank.Pix {
		blank.Pix[i] = 0xff
	}
	blank.Set(10, 10, color.Black)

	_, err := Scan(blank)
	assert.ErrorIs(t, err, ErrNoCodeFound)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, blank))
	_, err = ScanPNG(buf.Bytes())
	assert.ErrorIs(t, err, ErrNoCodeFound)
}

func TestScanPNG_NotAnImage(t *testing.T) {
	_, err := ScanPNG([]byte("definitely not a png"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCodeFound)
}

func TestRender_TooLarge(t *testing.T) {
	_, err := Render(bytes.Repeat([]byte("x"), 8000))
	assert.Error(t, err)
}
