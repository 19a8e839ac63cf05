// Package annotate draws detection boxes over a frame for the live view and
// training snapshots.
package annotate

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/bnema/petminion/internal/domain"
)

const thickness = 2

var BoxColor = color.RGBA{R: 255, G: 64, B: 64, A: 255}

// Boxes returns a copy of img with an outline around every boxed detection.
// img itself is never modified. Detections without a box are skipped.
func Boxes(img image.Image, detections []domain.Detection) image.Image {
	if img == nil {
		return nil
	}

	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	fill := image.NewUniform(BoxColor)
	for _, d := range detections {
		if d.Box == nil {
			continue
		}
		r := image.Rect(d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2).Add(bounds.Min).Intersect(bounds)
		if r.Empty() {
			continue
		}
		for _, edge := range outline(r) {
			draw.Draw(out, edge.Intersect(r), fill, image.Point{}, draw.Src)
		}
	}

	return out
}

func outline(r image.Rectangle) []image.Rectangle {
	return []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
}
