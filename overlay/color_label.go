package overlay

import (
	"fmt"
	"image/color"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LabeledPixelToID converts a label-encoded pixel (e.g., #010101), which is
// alpha-premultiplied, into an ID in the range of 0-255.
func LabeledPixelToID(c color.Color) (uint32, error) {
	pr, pg, pb, a := c.RGBA()

	// Confirm that we're mapping ID 1 => #010101, etc
	if pr != pg || pg != pb {
		return 0, fmt.Errorf("Encoding expected to have equal values for R, G, and B. Instead, found %d, %d, %d", pr, pg, pb)
	}

	if a == 0 {
		return 0, nil
	}

	// Undo the alpha premultiplication before scaling back to 0-255
	return uint32(math.Round(255 * float64(pr) / float64(a))), nil
}

// ColorAssigner picks the display color of a label. Colors are cosmetic: no
// consumer depends on a particular assignment.
type ColorAssigner interface {
	Color(label uint32) color.NRGBA
}

// RandomColors draws an independent random RGB color for every request. With
// a zero seed, the generator is seeded from the clock so two renders of the
// same mask are expected to differ.
type RandomColors struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomColors(seed int64) *RandomColors {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &RandomColors{rng: rand.New(rand.NewSource(seed))}
}

func (r *RandomColors) Color(label uint32) color.NRGBA {
	r.mu.Lock()
	defer r.mu.Unlock()

	return color.NRGBA{
		R: uint8(r.rng.Intn(256)),
		G: uint8(r.rng.Intn(256)),
		B: uint8(r.rng.Intn(256)),
		A: 255,
	}
}

// PaletteColors is a deterministic assigner: label N gets palette entry N mod
// len(palette).
type PaletteColors []color.NRGBA

// NewPaletteColors parses hex color codes such as "#FF0000".
func NewPaletteColors(codes []string) (PaletteColors, error) {
	if len(codes) == 0 {
		return nil, fmt.Errorf("palette needs at least one color")
	}

	out := make(PaletteColors, 0, len(codes))
	for _, code := range codes {
		c, err := nrgbaFromColorCode(code)
		if err != nil {
			return nil, fmt.Errorf("color %q: %w", code, err)
		}
		out = append(out, c)
	}

	return out, nil
}

func (p PaletteColors) Color(label uint32) color.NRGBA {
	return p[int(label%uint32(len(p)))]
}

func nrgbaFromColorCode(colorCode string) (color.NRGBA, error) {
	colorCode = strings.ReplaceAll(colorCode, "#", "")

	if len(colorCode) != 6 {
		return color.NRGBA{}, fmt.Errorf("expected 6 hex digits, got %d", len(colorCode))
	}

	// Parse each channel
	r, err := strconv.ParseUint(colorCode[0:2], 16, 8)
	if err != nil {
		return color.NRGBA{}, err
	}
	g, err := strconv.ParseUint(colorCode[2:4], 16, 8)
	if err != nil {
		return color.NRGBA{}, err
	}
	b, err := strconv.ParseUint(colorCode[4:6], 16, 8)
	if err != nil {
		return color.NRGBA{}, err
	}

	return color.NRGBA{
		R: uint8(r),
		G: uint8(g),
		B: uint8(b),
		A: 255,
	}, nil
}
