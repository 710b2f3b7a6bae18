package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

// DefaultOverlayOpacity is the weight of the label layer when it is blended
// over the original image; the original keeps the remaining 0.2.
const DefaultOverlayOpacity = 0.8

var background = color.NRGBA{A: 255}

// Overlay is the set of rendered views of one label mask.
type Overlay struct {
	// ROI has every labeled pixel flat-colored and everything else black.
	ROI *image.NRGBA

	// Labeled is ROI with the label IDs stamped at their centroids when
	// annotation was requested, or ROI itself otherwise.
	Labeled *image.NRGBA

	// Combined is the original image blended underneath Labeled.
	Combined *image.NRGBA

	Annotated bool
}

// View is the image shown to the user: the combined view when labels are
// annotated, the plain ROI overlay otherwise.
func (o Overlay) View() *image.NRGBA {
	if o.Annotated {
		return o.Combined
	}

	return o.ROI
}

type Renderer struct {
	Colors ColorAssigner

	// Opacity of the label layer in the combined view. Zero means
	// DefaultOverlayOpacity.
	Opacity float64

	// TextColor of the stamped label IDs. A nil value means white.
	TextColor color.Color
}

// Render paints the label mask over a color copy of the original image.
func (r Renderer) Render(mask LabelMask, original image.Image, annotate bool) (Overlay, error) {
	b := original.Bounds()
	if mask.Width != b.Dx() || mask.Height != b.Dy() {
		return Overlay{}, &DimensionMismatchError{
			MaskWidth:   mask.Width,
			MaskHeight:  mask.Height,
			ImageWidth:  b.Dx(),
			ImageHeight: b.Dy(),
		}
	}

	colors := r.Colors
	if colors == nil {
		colors = NewRandomColors(0)
	}

	// One color per label, drawn independently
	palette := make(map[uint32]color.NRGBA)
	for _, id := range mask.DistinctLabels() {
		palette[id] = colors.Color(id)
	}

	roi := image.NewNRGBA(image.Rect(0, 0, mask.Width, mask.Height))
	draw.Draw(roi, roi.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if id := mask.At(x, y); id != 0 {
				roi.SetNRGBA(x, y, palette[id])
			}
		}
	}

	out := Overlay{ROI: roi, Labeled: roi, Annotated: annotate}
	if annotate {
		out.Labeled = r.annotate(roi, ComputeMoments(mask))
	}

	opacity := r.Opacity
	if opacity == 0 {
		opacity = DefaultOverlayOpacity
	}
	out.Combined = imaging.Overlay(original, out.Labeled, image.Point{}, opacity)

	return out, nil
}

// annotate writes each label's ID centered on its centroid, on a copy of img.
func (r Renderer) annotate(img *image.NRGBA, moments []LabelMoments) *image.NRGBA {
	ctx := gg.NewContextForImage(img)

	textColor := r.TextColor
	if textColor == nil {
		textColor = color.White
	}
	ctx.SetColor(textColor)

	for _, m := range moments {
		ctx.DrawStringAnchored(strconv.FormatUint(uint64(m.Label), 10), m.Centroid.X, m.Centroid.Y, 0.5, 0.5)
	}

	return imaging.Clone(ctx.Image())
}
