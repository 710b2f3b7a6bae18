package overlay

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Loader decodes masks and original images from local paths or, when a
// storage client is configured, from gs://bucket/object paths. Every failure
// is reported as an *ImageLoadError.
type Loader struct {
	Storage *storage.Client

	// PreserveBitDepth keeps the full range of 16-bit grayscale originals when
	// building intensity images.
	PreserveBitDepth bool
}

// ImageFromBytes creates an image from the specified bytes. Must be PNG, GIF,
// BMP, TIFF or JPEG formatted (based on the decoders we have imported).
func ImageFromBytes(imgBytes []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(imgBytes))

	return img, err
}

// Open reads and decodes the image at filePath.
func (l Loader) Open(ctx context.Context, filePath string) (image.Image, error) {
	f, err := l.openSource(ctx, filePath)
	if err != nil {
		return nil, &ImageLoadError{Path: filePath, Err: pfx.Err(err)}
	}
	defer f.Close()

	// The image decoder swallows errors, so we won't see i/o errors if they
	// happen during image decoding. To capture these, we read the full image
	// into memory here, and pass a byte reader to the image decoder.
	imgBytes, err := io.ReadAll(f)
	if err != nil {
		return nil, &ImageLoadError{Path: filePath, Err: pfx.Err(err)}
	}

	img, err := ImageFromBytes(imgBytes)
	if err != nil {
		return nil, &ImageLoadError{Path: filePath, Err: pfx.Err(err)}
	}

	return img, nil
}

// LoadMask decodes a label mask at its native depth.
func (l Loader) LoadMask(ctx context.Context, filePath string) (LabelMask, error) {
	img, err := l.Open(ctx, filePath)
	if err != nil {
		return LabelMask{}, err
	}

	mask, err := NewLabelMask(img)
	if err != nil {
		return LabelMask{}, &ImageLoadError{Path: filePath, Err: err}
	}

	return mask, nil
}

// LoadOriginal decodes an original image once and returns both of its
// working forms: a three-channel color copy for rendering and a grayscale
// intensity image for statistics.
func (l Loader) LoadOriginal(ctx context.Context, filePath string) (*image.NRGBA, Intensity, error) {
	img, err := l.Open(ctx, filePath)
	if err != nil {
		return nil, Intensity{}, err
	}

	return imaging.Clone(img), IntensityFromImage(img, l.PreserveBitDepth), nil
}

func (l Loader) openSource(ctx context.Context, path string) (io.ReadCloser, error) {
	if !strings.HasPrefix(path, "gs://") {
		return os.Open(path)
	}

	if l.Storage == nil {
		return nil, fmt.Errorf("%s is a Google Storage path but no storage client was configured", path)
	}

	// Detect the bucket and the path to the actual file
	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 {
		return nil, fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}

	return l.Storage.Bucket(pathParts[0]).Object(pathParts[1]).NewReader(ctx)
}
