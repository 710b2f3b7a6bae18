package overlay

import "sort"

// LabelMoments holds the raw image moments of one label that the overlay
// needs: its pixel count, centroid, and inclusive bounding box.
type LabelMoments struct {
	Label    uint32
	Area     float64
	Centroid struct {
		X, Y float64
	}
	Bounds Bounds
}

// ComputeMoments makes a single pass over the mask and returns the moments of
// every positive label, ordered by label.
func ComputeMoments(mask LabelMask) []LabelMoments {
	// Via https://en.wikipedia.org/wiki/Image_moment
	//
	// MX0Y0 is the area, MX1Y0 and MX0Y1 are the sums of the X and Y
	// coordinates of the label's pixels.
	type raw struct {
		MX0Y0, MX1Y0, MX0Y1 float64
		bounds              Bounds
	}

	acc := make(map[uint32]*raw)
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			id := mask.At(x, y)
			if id == 0 {
				continue
			}

			m, exists := acc[id]
			if !exists {
				m = &raw{bounds: Bounds{TopLeft: Coord{x, y}, BottomRight: Coord{x, y}}}
				acc[id] = m
			}

			m.MX0Y0++
			m.MX1Y0 += float64(x)
			m.MX0Y1 += float64(y)

			if x < m.bounds.TopLeft.X {
				m.bounds.TopLeft.X = x
			}
			if x > m.bounds.BottomRight.X {
				m.bounds.BottomRight.X = x
			}
			// Rows are scanned in order, so only the bottom edge can grow
			m.bounds.BottomRight.Y = y
		}
	}

	out := make([]LabelMoments, 0, len(acc))
	for id, m := range acc {
		lm := LabelMoments{
			Label:  id,
			Area:   m.MX0Y0,
			Bounds: m.bounds,
		}
		lm.Centroid.X = m.MX1Y0 / m.MX0Y0
		lm.Centroid.Y = m.MX0Y1 / m.MX0Y0
		out = append(out, lm)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })

	return out
}
