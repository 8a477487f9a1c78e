package services

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"vesteja/internal/domain/entities"
)

// StereoLayout describes a side-by-side frame for cardboard style headsets.
type StereoLayout struct {
	EyeWidth   int
	EyeHeight  int
	Disparity  int
	Background color.RGBA
	PanelFill  color.RGBA
}

func DefaultStereoLayout() StereoLayout {
	return StereoLayout{
		EyeWidth:   960,
		EyeHeight:  1080,
		Disparity:  24,
		Background: color.RGBA{R: 0x12, G: 0x12, B: 0x18, A: 0xff},
		PanelFill:  color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	}
}

// RenderStereo places img on the result panel once per eye. The panel keeps
// the scene's width:height ratio and is shifted inwards by half the disparity
// in each eye so it reads as floating in front of the viewer.
func RenderStereo(img image.Image, layout StereoLayout) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, layout.EyeWidth*2, layout.EyeHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(layout.Background), image.Point{}, draw.Src)

	panelH := layout.EyeHeight * 8 / 10
	panelW := int(float64(panelH) * entities.PanelWidth / entities.PanelHeight)
	if limit := layout.EyeWidth * 9 / 10; panelW > limit {
		panelW = limit
		panelH = int(float64(panelW) * entities.PanelHeight / entities.PanelWidth)
	}

	shift := layout.Disparity / 2
	for eye, offset := range []int{shift, -shift} {
		originX := eye*layout.EyeWidth + (layout.EyeWidth-panelW)/2 + offset
		originY := (layout.EyeHeight - panelH) / 2
		panel := image.Rect(originX, originY, originX+panelW, originY+panelH)

		draw.Draw(canvas, panel, image.NewUniform(layout.PanelFill), image.Point{}, draw.Src)
		draw.CatmullRom.Scale(canvas, fitInside(img.Bounds(), panel), img, img.Bounds(), draw.Over, nil)
	}
	return canvas
}

// fitInside returns the largest rect with src's aspect ratio centred in dst.
func fitInside(src, dst image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	dw, dh := dst.Dx(), dst.Dy()
	if sw == 0 || sh == 0 {
		return dst
	}
	w, h := dw, sh*dw/sw
	if h > dh {
		w, h = sw*dh/sh, dh
	}
	x := dst.Min.X + (dw-w)/2
	y := dst.Min.Y + (dh-h)/2
	return image.Rect(x, y, x+w, y+h)
}
