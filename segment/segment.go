// Package segment produces label masks from original images. Segmentation
// itself is done by an external model; this package only drives it.
package segment

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/carbocation/labels2rois/batch"
	"github.com/carbocation/labels2rois/progress"
	"github.com/carbocation/pfx"
	"github.com/sirupsen/logrus"
)

// DefaultModel is the pretrained cellpose model used when Params.Model is
// empty.
const DefaultModel = "cyto"

// Params tune segmentation. Zero values leave the backend's defaults in place,
// except Diameter, where zero asks the backend to estimate it.
type Params struct {
	Diameter          float64  `json:"diameter" yaml:"diameter"`
	FlowThreshold     float64  `json:"flow_threshold" yaml:"flow_threshold"`
	CellprobThreshold float64  `json:"cellprob_threshold" yaml:"cellprob_threshold"`
	Invert            bool     `json:"invert" yaml:"invert"`
	TileNormBlocksize int      `json:"tile_norm_blocksize" yaml:"tile_norm_blocksize"`
	Model             string   `json:"model" yaml:"model"`
	GPU               bool     `json:"gpu" yaml:"gpu"`
	ExtraArgs         []string `json:"extra_args" yaml:"extra_args"`
}

// DefaultParams match the settings the pipeline has historically run with.
func DefaultParams() Params {
	return Params{
		Diameter:          30,
		FlowThreshold:     0.3,
		CellprobThreshold: 0,
		Model:             DefaultModel,
	}
}

// Service writes one <base>_cp_masks mask alongside every image in dir and
// reports its progress through fn.
type Service interface {
	Segment(ctx context.Context, dir string, p Params, fn progress.Func) error
}

// Images lists the original images directly inside dir, skipping masks from
// earlier runs.
func Images(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]string, 0)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || batch.IsMaskFile(name) || !batch.IsImageFile(name) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}

	return out, nil
}

// CellposeCLI runs the cellpose command line once per image.
type CellposeCLI struct {
	// Launcher is the command prefix. Defaults to "python -m cellpose".
	Launcher []string

	// Env is added to the current environment of every launch.
	Env []string

	Log logrus.FieldLogger
}

var _ Service = (*CellposeCLI)(nil)

func (c *CellposeCLI) launcher() []string {
	if len(c.Launcher) > 0 {
		return c.Launcher
	}

	return []string{"python", "-m", "cellpose"}
}

func (c *CellposeCLI) logger() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}

	return c.Log
}

// Segment runs cellpose for each image in dir. A directory without images is
// complete immediately.
func (c *CellposeCLI) Segment(ctx context.Context, dir string, p Params, fn progress.Func) error {
	images, err := Images(dir)
	if err != nil {
		return err
	}

	log := c.logger()

	if len(images) == 0 {
		log.WithField("dir", dir).Warnln("No images to segment")
		fn.Report(100)
		return nil
	}

	fn.Report(0)
	for i, image := range images {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := c.run(ctx, image, p); err != nil {
			return err
		}

		fn.Report(float64(i+1) / float64(len(images)) * 100)
	}

	return nil
}

func (c *CellposeCLI) run(ctx context.Context, image string, p Params) error {
	argv := append(append([]string{}, c.launcher()...), Args(image, p)...)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), c.Env...)

	entry := c.logger().WithField("image", image)
	w := entry.WriterLevel(logrus.DebugLevel)
	defer w.Close()
	cmd.Stdout = w
	cmd.Stderr = w

	entry.Infoln("Segmenting")
	if err := cmd.Run(); err != nil {
		return pfx.Err(fmt.Errorf("cellpose on %s: %w", image, err))
	}

	return nil
}

// Args are the cellpose flags that segment a single image and save its mask as
// a PNG next to it.
func Args(image string, p Params) []string {
	model := p.Model
	if model == "" {
		model = DefaultModel
	}

	args := []string{
		"--image_path", image,
		"--pretrained_model", model,
		"--chan", "0",
		"--chan2", "0",
		"--diameter", formatFloat(p.Diameter),
		"--flow_threshold", formatFloat(p.FlowThreshold),
		"--cellprob_threshold", formatFloat(p.CellprobThreshold),
		"--save_png",
		"--no_npy",
	}

	if p.Invert {
		args = append(args, "--invert")
	}
	if p.TileNormBlocksize > 0 {
		args = append(args, "--tile_norm_blocksize", strconv.Itoa(p.TileNormBlocksize))
	}
	if p.GPU {
		args = append(args, "--use_gpu")
	}

	return append(args, p.ExtraArgs...)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
