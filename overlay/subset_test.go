package overlay

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestCropFullViewIsIdentity(t *testing.T) {
	for _, size := range []image.Point{{10, 10}, {7, 5}, {1, 1}, {640, 481}} {
		img := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))

		out, err := Crop(img, FullView)
		if err != nil {
			t.Fatal(err)
		}

		if out.Bounds().Size() != size {
			t.Errorf("full view of %v returned %v", size, out.Bounds().Size())
		}
	}
}

func TestZoomWindow(t *testing.T) {
	cases := []struct {
		Zoom     Zoom
		W, H     int
		Expected image.Rectangle
	}{
		{Zoom{Factor: 2, CenterX: 0.5, CenterY: 0.5}, 100, 80, image.Rect(25, 20, 75, 60)},
		// Windows past an edge are clamped, not shifted
		{Zoom{Factor: 2, CenterX: 0, CenterY: 0}, 100, 80, image.Rect(0, 0, 25, 20)},
		{Zoom{Factor: 4, CenterX: 1, CenterY: 1}, 100, 80, image.Rect(88, 70, 100, 80)},
		{Zoom{Factor: 1, CenterX: 0.25, CenterY: 0.5}, 100, 80, image.Rect(0, 0, 75, 80)},
	}

	for _, c := range cases {
		if got := c.Zoom.Window(c.W, c.H); got != c.Expected {
			t.Errorf("%+v on %dx%d: expected %v, got %v", c.Zoom, c.W, c.H, c.Expected, got)
		}
	}
}

func TestCropSelectsWindow(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(2, 2, color.NRGBA{R: 255, A: 255})

	out, err := Crop(img, Zoom{Factor: 2, CenterX: 0.75, CenterY: 0.75})
	if err != nil {
		t.Fatal(err)
	}

	if out.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
	if out.NRGBAAt(0, 0).R != 255 {
		t.Errorf("expected the marked pixel at the window origin")
	}

	rescaled, err := Crop(img, Zoom{Factor: 2, CenterX: 0.75, CenterY: 0.75, Rescale: true})
	if err != nil {
		t.Fatal(err)
	}
	if rescaled.Bounds().Dx() != 4 {
		t.Errorf("expected the rescaled crop to be 4 wide, got %v", rescaled.Bounds())
	}
}

func TestZoomValidate(t *testing.T) {
	for _, z := range []Zoom{
		{Factor: 0.5, CenterX: 0.5, CenterY: 0.5},
		{Factor: 1, CenterX: -0.1, CenterY: 0.5},
		{Factor: 1, CenterX: 0.5, CenterY: 1.5},
	} {
		if err := z.Validate(); !errors.Is(err, ErrInvalidZoom) {
			t.Errorf("%+v: expected ErrInvalidZoom, got %v", z, err)
		}
	}

	if err := FullView.Validate(); err != nil {
		t.Errorf("full view should be valid: %v", err)
	}
}
