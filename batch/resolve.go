package batch

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MaskMarker identifies segmentation output: any file whose name contains it
// is a label mask.
const MaskMarker = "cp_masks"

const maskSuffix = "_" + MaskMarker

// ErrNotFound is returned when no original image matches a mask. It is a
// reason to skip that mask, not to stop a batch.
var ErrNotFound = errors.New("original image not found")

var originalExtensions = map[string]struct{}{
	".tif":  {},
	".tiff": {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

func IsMaskFile(name string) bool {
	return strings.Contains(name, MaskMarker)
}

// IsImageFile reports whether name has an extension an original image may
// carry. Mask files are image files too.
func IsImageFile(name string) bool {
	_, ok := originalExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// BaseName is the file name of path without its directory or extension.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// ResolveOriginal finds the original image a mask was segmented from. The
// mask's base name minus its trailing "_cp_masks" is matched as a substring
// against every image file under searchRoot, recursively. Mask files
// themselves never match.
//
// When several files match, the first one encountered wins. The walk is
// lexical here, but callers must not depend on which candidate is chosen.
func ResolveOriginal(maskFileName, searchRoot string) (string, error) {
	pattern := strings.TrimSuffix(BaseName(maskFileName), maskSuffix)

	var found string
	err := filepath.WalkDir(searchRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// The root itself must be readable; unreadable subdirectories are
			// passed over.
			if path == searchRoot {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		name := d.Name()
		if IsMaskFile(name) || !IsImageFile(name) || !strings.Contains(name, pattern) {
			return nil
		}

		found = path
		return fs.SkipAll
	})
	if err != nil {
		return "", err
	}

	if found == "" {
		return "", ErrNotFound
	}

	return found, nil
}

// Outputs are the per-mask artifacts written to the output directory.
type Outputs struct {
	Stats   string
	Overlay string
}

// OutputPathsFor derives <base>.xlsx and <base>_ROI.png from the mask's file
// name, where <base> is the name without its extension.
func OutputPathsFor(maskPath, outputDir string) Outputs {
	base := BaseName(maskPath)

	return Outputs{
		Stats:   filepath.Join(outputDir, base+".xlsx"),
		Overlay: filepath.Join(outputDir, base+"_ROI.png"),
	}
}

// PlanOutputs maps each mask to its own output paths.
func PlanOutputs(maskPaths []string, outputDir string) map[string]Outputs {
	out := make(map[string]Outputs, len(maskPaths))
	for _, m := range maskPaths {
		out[m] = OutputPathsFor(m, outputDir)
	}

	return out
}

// ListMasks returns the mask files directly inside dir, in directory order.
func ListMasks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() || !IsMaskFile(entry.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, entry.Name()))
	}

	return out, nil
}
