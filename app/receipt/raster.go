package receipt

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/skip2/go-qrcode"
)

// MaxRasterWidth is the printable width in dots of a 58mm head at 203 DPI
const MaxRasterWidth = 384

// Raster prints an image as a GS v 0 bit image. Transparent areas are composited on
// white, wide images are scaled down to MaxRasterWidth.
func (w *Writer) Raster(img image.Image) {
	img = flattenOnWhite(img)
	img = fitWidth(img, MaxRasterWidth)

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	widthBytes := (width + 7) / 8

	// GS v 0 m xL xH yL yH d1...dk
	w.buf.Write([]byte{
		GS, 'v', '0', 0,
		byte(widthBytes % 256), byte(widthBytes / 256),
		byte(height % 256), byte(height / 256),
	})

	for y := 0; y < height; y++ {
		for x := 0; x < width; x += 8 {
			var b byte
			for bit := 0; bit < 8; bit++ {
				px := x + bit
				if px < width && isDark(img.At(bounds.Min.X+px, bounds.Min.Y+y)) {
					b |= 1 << uint(7-bit)
				}
			}
			w.buf.WriteByte(b)
		}
	}
	w.buf.WriteByte(NL)
}

// QRCode renders content as a QR code of size x size dots and prints it
func (w *Writer) QRCode(content string, size int) error {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}
	w.Raster(qr.Image(size))
	return nil
}

func flattenOnWhite(img image.Image) image.Image {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Over)
	return out
}

func fitWidth(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= maxWidth {
		return img
	}
	ratio := float64(bounds.Dx()) / float64(maxWidth)
	newHeight := int(float64(bounds.Dy()) / ratio)
	resized := image.NewRGBA(image.Rect(0, 0, maxWidth, newHeight))
	for y := 0; y < newHeight; y++ {
		for x := 0; x < maxWidth; x++ {
			srcX := bounds.Min.X + int(float64(x)*ratio)
			srcY := bounds.Min.Y + int(float64(y)*ratio)
			resized.Set(x, y, img.At(srcX, srcY))
		}
	}
	return resized
}

// isDark applies the luminance threshold, bit set means print black
func isDark(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	gray := (299*(r>>8) + 587*(g>>8) + 114*(b>>8)) / 1000
	return gray < 128
}
