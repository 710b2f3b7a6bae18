package overlay

import (
	"fmt"
	"image"
	"image/color"
	"sort"
)

// LabelMask is an integer-valued image where each object instance carries a
// unique positive ID and 0 is background. Labels are stored row-major.
type LabelMask struct {
	Width  int
	Height int
	Labels []uint32
}

// At returns the label at column x, row y.
func (m LabelMask) At(x, y int) uint32 {
	return m.Labels[y*m.Width+x]
}

// NewLabelMask converts a decoded mask image into a LabelMask. 8- and 16-bit
// grayscale images map their gray value to the ID directly. Other color
// models must encode the ID with equal R, G and B values (e.g., #030303 for ID
// 3).
func NewLabelMask(img image.Image) (LabelMask, error) {
	b := img.Bounds()
	out := LabelMask{
		Width:  b.Dx(),
		Height: b.Dy(),
		Labels: make([]uint32, b.Dx()*b.Dy()),
	}

	switch src := img.(type) {
	case *image.Gray16:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out.Labels[(y-b.Min.Y)*out.Width+(x-b.Min.X)] = uint32(src.Gray16At(x, y).Y)
			}
		}
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out.Labels[(y-b.Min.Y)*out.Width+(x-b.Min.X)] = uint32(src.GrayAt(x, y).Y)
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				id, err := LabeledPixelToID(img.At(x, y))
				if err != nil {
					return LabelMask{}, fmt.Errorf("pixel (%d, %d): %w", x, y, err)
				}
				out.Labels[(y-b.Min.Y)*out.Width+(x-b.Min.X)] = id
			}
		}
	}

	return out, nil
}

// DistinctLabels returns the positive labels present in the mask, ascending.
func (m LabelMask) DistinctLabels() []uint32 {
	seen := make(map[uint32]struct{})
	for _, v := range m.Labels {
		if v == 0 {
			continue
		}
		seen[v] = struct{}{}
	}

	out := make([]uint32, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// Image renders the mask as a 16-bit grayscale image, which is how label masks
// are conventionally stored on disk. IDs above 65535 are saturated.
func (m LabelMask) Image() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			v := m.At(x, y)
			if v > 0xffff {
				v = 0xffff
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(v)})
		}
	}

	return img
}
