package services

import (
	"errors"
	"image"

	"golang.org/x/image/draw"

	"vesteja/internal/domain/valueobjects"
)

// MaxRasterPixels bounds the off-screen buffer. ImageData.Decode already
// refuses larger photos from their header; this catches images built in
// memory.
const MaxRasterPixels = valueobjects.MaxDecodePixels

var ErrRasterUnavailable = errors.New("raster buffer unavailable")

// Rasterize draws img into a fresh RGBA buffer anchored at the origin.
func Rasterize(img image.Image) (*image.RGBA, error) {
	if img == nil {
		return nil, ErrRasterUnavailable
	}
	b := img.Bounds()
	if b.Empty() || b.Dx()*b.Dy() > MaxRasterPixels {
		return nil, ErrRasterUnavailable
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst, nil
}

// MeanBrightness is the mean over all pixels of (R+G+B)/3, on a 0-255 scale.
func MeanBrightness(raster *image.RGBA) float64 {
	b := raster.Bounds()
	if b.Empty() {
		return 0
	}
	var sum uint64
	for y := 0; y < b.Dy(); y++ {
		row := raster.Pix[y*raster.Stride : y*raster.Stride+b.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			sum += uint64(row[i]) + uint64(row[i+1]) + uint64(row[i+2])
		}
	}
	return float64(sum) / 3 / float64(b.Dx()*b.Dy())
}

// Downscale shrinks img so its longer edge is at most maxDim. Smaller images
// and maxDim <= 0 return img unchanged.
func Downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}
	if w >= h {
		h = max(1, h*maxDim/w)
		w = maxDim
	} else {
		w = max(1, w*maxDim/h)
		h = maxDim
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
