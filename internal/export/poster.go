package export

import (
	"fmt"
	"image"
	"image/draw"

	qrcode "github.com/skip2/go-qrcode"
)

// PosterMargin is the gap between a stamped code and the frame edge at
// ReferenceWidth.
const PosterMargin = 16

// StampQR draws a QR code for content into the bottom-right corner of img.
// The code side is about a fifth of the frame height.
func StampQR(img *image.RGBA, content string) error {
	if content == "" {
		return fmt.Errorf("qr: empty content")
	}
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("qr: %w", err)
	}

	b := img.Bounds()
	margin := PosterMargin * b.Dx() / 1200

	// Image never goes below one pixel per module
	code := q.Image(b.Dy() / 5)
	side := code.Bounds().Dx()
	if side+margin > b.Dx() || side+margin > b.Dy() {
		return fmt.Errorf("qr: frame %dx%d too small for a code", b.Dx(), b.Dy())
	}
	at := image.Pt(b.Max.X-margin-side, b.Max.Y-margin-side)
	draw.Draw(img, image.Rectangle{Min: at, Max: at.Add(image.Pt(side, side))}, code, code.Bounds().Min, draw.Src)
	return nil
}
