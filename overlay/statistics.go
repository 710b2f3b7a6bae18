package overlay

import (
	"image"
	"sort"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Intensity is a single-channel, row-major view of an original image.
type Intensity struct {
	Width  int
	Height int
	Values []float64
}

func (in Intensity) At(x, y int) float64 {
	return in.Values[y*in.Width+x]
}

// IntensityFromImage reduces an image to one channel on the 8-bit scale. Color
// images are converted with BT.601 luma weights; 16-bit sources keep only
// their high byte, matching how grayscale reads of microscopy images usually
// behave. With preserveDepth set, 16-bit grayscale sources keep their full
// range instead.
func IntensityFromImage(img image.Image, preserveDepth bool) Intensity {
	b := img.Bounds()
	out := Intensity{
		Width:  b.Dx(),
		Height: b.Dy(),
		Values: make([]float64, b.Dx()*b.Dy()),
	}

	if g16, ok := img.(*image.Gray16); ok && preserveDepth {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out.Values[(y-b.Min.Y)*out.Width+(x-b.Min.X)] = float64(g16.Gray16At(x, y).Y)
			}
		}
		return out
	}

	// imaging.Grayscale returns an NRGBA anchored at (0, 0) with R == G == B
	gray := imaging.Grayscale(img)
	for i := range out.Values {
		out.Values[i] = float64(gray.Pix[i*4])
	}

	return out
}

// ObjectRecord is the measurement of one labeled object.
type ObjectRecord struct {
	Label             uint32
	Area              int
	IntegratedDensity float64
	Mean              float64
	StdDev            float64
}

// ComputeStatistics measures every positive label of the mask against the
// intensity image. Records are ordered by ascending label; background (0) is
// never reported. StdDev is the population standard deviation.
func ComputeStatistics(mask LabelMask, intensity Intensity) ([]ObjectRecord, error) {
	if mask.Width != intensity.Width || mask.Height != intensity.Height {
		return nil, &DimensionMismatchError{
			MaskWidth:   mask.Width,
			MaskHeight:  mask.Height,
			ImageWidth:  intensity.Width,
			ImageHeight: intensity.Height,
		}
	}

	// Pass 1: gather the intensity values under each label
	values := make(map[uint32][]float64)
	for i, id := range mask.Labels {
		if id == 0 {
			continue
		}
		values[id] = append(values[id], intensity.Values[i])
	}

	// Pass 2: summarize each label
	out := make([]ObjectRecord, 0, len(values))
	for id, v := range values {
		mean, std := stat.PopMeanStdDev(v, nil)
		if len(v) == 1 {
			// Single-pixel objects have no spread
			std = 0
		}
		out = append(out, ObjectRecord{
			Label:             id,
			Area:              len(v),
			IntegratedDensity: floats.Sum(v),
			Mean:              mean,
			StdDev:            std,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })

	return out, nil
}
