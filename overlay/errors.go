package overlay

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrImageLoad         = errors.New("image could not be loaded")
	ErrDimensionMismatch = errors.New("label mask and image dimensions differ")
	ErrRenderIO          = errors.New("rendered image could not be written")
	ErrSaveTimeout       = errors.New("image save timed out")
	ErrInvalidZoom       = errors.New("invalid zoom")
)

// ImageLoadError reports a mask or image path that could not be opened or
// decoded.
type ImageLoadError struct {
	Path string
	Err  error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ImageLoadError) Unwrap() error { return e.Err }

func (e *ImageLoadError) Is(target error) bool { return target == ErrImageLoad }

// DimensionMismatchError is returned when a label mask is paired with an image
// of a different size.
type DimensionMismatchError struct {
	MaskWidth, MaskHeight   int
	ImageWidth, ImageHeight int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("label mask is %dx%d but image is %dx%d", e.MaskWidth, e.MaskHeight, e.ImageWidth, e.ImageHeight)
}

func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }

type RenderIOError struct {
	Path string
	Err  error
}

func (e *RenderIOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *RenderIOError) Unwrap() error { return e.Err }

func (e *RenderIOError) Is(target error) bool { return target == ErrRenderIO }

// SaveTimeoutError is returned when a bounded save overruns its deadline. The
// abandoned write may still complete in the background; its result is
// discarded.
type SaveTimeoutError struct {
	Path    string
	Timeout time.Duration
}

func (e *SaveTimeoutError) Error() string {
	return fmt.Sprintf("saving %s took longer than %v, skipped", e.Path, e.Timeout)
}

func (e *SaveTimeoutError) Is(target error) bool { return target == ErrSaveTimeout }
