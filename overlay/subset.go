package overlay

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Zoom describes a crop window: Factor shrinks the window relative to the
// image (1 shows everything), and CenterX/CenterY place its center as a
// fraction of the image width and height.
type Zoom struct {
	Factor  float64 `json:"factor" yaml:"factor"`
	CenterX float64 `json:"center_x" yaml:"center_x"`
	CenterY float64 `json:"center_y" yaml:"center_y"`

	// Rescale enlarges the crop back to the source width using nearest
	// neighbor sampling, so zoomed views keep their on-screen size.
	Rescale bool `json:"rescale" yaml:"rescale"`
}

// FullView is the identity zoom.
var FullView = Zoom{Factor: 1, CenterX: 0.5, CenterY: 0.5}

func (z Zoom) Validate() error {
	if z.Factor < 1 {
		return fmt.Errorf("%w: factor %v is below 1", ErrInvalidZoom, z.Factor)
	}
	if z.CenterX < 0 || z.CenterX > 1 || z.CenterY < 0 || z.CenterY > 1 {
		return fmt.Errorf("%w: center (%v, %v) is outside [0, 1]", ErrInvalidZoom, z.CenterX, z.CenterY)
	}

	return nil
}

// Window returns the crop rectangle for an image of the given size. The
// window has size (width/Factor, height/Factor) centered at the requested
// point and is intersected with the image bounds.
func (z Zoom) Window(width, height int) image.Rectangle {
	x0, x1 := zoomAxis(width, z.Factor, z.CenterX)
	y0, y1 := zoomAxis(height, z.Factor, z.CenterY)

	return image.Rect(x0, y0, x1, y1)
}

func zoomAxis(size int, factor, center float64) (int, int) {
	c := int(float64(size) * center)
	span := int(float64(size) / factor)

	start := c - span/2
	return ClampDimension(start, size), ClampDimension(start+span, size)
}

// Crop extracts the zoom window from img. The returned image is anchored at
// (0, 0).
func Crop(img image.Image, z Zoom) (*image.NRGBA, error) {
	if err := z.Validate(); err != nil {
		return nil, err
	}

	b := img.Bounds()
	window := z.Window(b.Dx(), b.Dy()).Add(b.Min)

	out := imaging.Crop(img, window)
	if z.Rescale && out.Bounds().Dx() > 0 && out.Bounds().Dx() != b.Dx() {
		out = imaging.Resize(out, b.Dx(), 0, imaging.NearestNeighbor)
	}

	return out, nil
}

// ClampDimension keeps a position within [0, max].
func ClampDimension(pos, max int) int {
	if pos < 0 {
		return 0
	}
	if pos > max {
		return max
	}

	return pos
}
