package overlay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/carbocation/go-quantize/quantize"
	"github.com/disintegration/imaging"
)

// DefaultSaveTimeout bounds how long a single overlay save may take.
const DefaultSaveTimeout = 30 * time.Second

// SaveImage encodes img in the format implied by the extension of path (PNG,
// JPEG, TIFF, BMP or GIF). The directory must already exist.
func SaveImage(path string, img image.Image) error {
	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		return &RenderIOError{Path: path, Err: err}
	}

	of, err := os.Create(path)
	if err != nil {
		return &RenderIOError{Path: path, Err: err}
	}

	bw := bufio.NewWriter(of)
	err = imaging.Encode(bw, img, format,
		imaging.JPEGQuality(95),
		imaging.GIFQuantizer(&quantize.MedianCutQuantizer{Aggregation: quantize.Mean}),
	)
	if err == nil {
		err = bw.Flush()
	}
	if closeErr := of.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return &RenderIOError{Path: path, Err: err}
	}

	return nil
}

// SaveWithTimeout runs SaveImage under a deadline scoped to this one call.
// When the deadline passes first, a *SaveTimeoutError is returned and the
// pending write is abandoned rather than retried.
func SaveWithTimeout(ctx context.Context, timeout time.Duration, path string, img image.Image) error {
	return withSaveTimeout(ctx, timeout, path, func() error { return SaveImage(path, img) })
}

func withSaveTimeout(ctx context.Context, timeout time.Duration, path string, fn func() error) error {
	if timeout <= 0 {
		timeout = DefaultSaveTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so the writer can always finish, even after we stop waiting
	done := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- &RenderIOError{Path: path, Err: fmt.Errorf("save panicked: %v", r)}
			}
		}()

		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return &SaveTimeoutError{Path: path, Timeout: timeout}
	}
}
