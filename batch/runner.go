// Package batch drives ROI extraction over every mask in a directory.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/carbocation/labels2rois/overlay"
	"github.com/carbocation/labels2rois/progress"
	"github.com/carbocation/labels2rois/roi"
	"github.com/sirupsen/logrus"
)

// Extractor is the per-mask unit of work. *roi.Extractor satisfies it.
type Extractor interface {
	Extract(ctx context.Context, job roi.Job) (roi.Result, error)
}

type Runner struct {
	Extractor Extractor

	// Progress receives the cumulative share of masks handled, (i+1)/N*100,
	// after each mask. It never decreases and ends at exactly 100.
	Progress progress.Func

	Log logrus.FieldLogger
}

// Run processes the masks in maskDir one at a time, writing artifacts into
// outputDir. A mask without an original image is skipped and a mask whose
// extraction fails is recorded as failed; neither stops the batch. The
// returned error is only set when maskDir cannot be listed or ctx is done.
func (r *Runner) Run(ctx context.Context, maskDir, outputDir string, annotate bool) (Report, error) {
	log := r.logger()

	var report Report

	masks, err := ListMasks(maskDir)
	if err != nil {
		return report, fmt.Errorf("listing masks in %s: %w", maskDir, err)
	}

	total := len(masks)
	log.Printf("Found %d masks for processing.", total)

	if total == 0 {
		r.Progress.Report(100)
		return report, nil
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return report, fmt.Errorf("creating output directory: %w", err)
	}

	r.Progress.Report(0)

	for idx, mask := range masks {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		report.Entries = append(report.Entries, r.runOne(ctx, mask, maskDir, outputDir, annotate))

		r.Progress.Report(float64(idx+1) / float64(total) * 100)
	}

	return report, nil
}

func (r *Runner) runOne(ctx context.Context, mask, maskDir, outputDir string, annotate bool) Entry {
	log := r.logger().WithField("mask", mask)

	outputs := OutputPathsFor(mask, outputDir)
	entry := Entry{
		Mask:    mask,
		Stats:   outputs.Stats,
		Overlay: outputs.Overlay,
	}

	original, err := ResolveOriginal(mask, maskDir)
	if err != nil {
		entry.Status = StatusSkipped
		entry.Reason = err.Error()
		if errors.Is(err, ErrNotFound) {
			log.Warn("Original image not found for mask file, skipping")
		} else {
			log.WithError(err).Warn("Could not search for original image, skipping")
		}
		return entry
	}
	entry.Original = original

	res, err := r.Extractor.Extract(ctx, roi.Job{
		MaskPath:     mask,
		OriginalPath: original,
		StatsPath:    outputs.Stats,
		OverlayPath:  outputs.Overlay,
		Annotate:     annotate,
	})
	entry.Objects = len(res.Records)
	entry.StatsWritten = res.StatsWritten
	if err != nil {
		entry.Status = StatusFailed
		entry.Reason = err.Error()
		log.WithFields(logrus.Fields{
			"original": original,
			"kind":     errorKind(err),
		}).WithError(err).Error("ROI extraction failed")
		return entry
	}

	entry.Status = StatusProcessed
	if res.OverlaySkipped {
		entry.Reason = "overlay save timed out"
	}

	return entry
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, overlay.ErrImageLoad):
		return "ImageLoadError"
	case errors.Is(err, overlay.ErrDimensionMismatch):
		return "DimensionMismatch"
	case errors.Is(err, overlay.ErrRenderIO):
		return "RenderIOError"
	}

	return "other"
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}

	return r.Log
}
