// Package roi turns one label mask and its original image into a statistics
// workbook and an overlay image.
package roi

import (
	"context"
	"errors"
	"time"

	"github.com/carbocation/labels2rois/overlay"
	"github.com/carbocation/labels2rois/progress"
	"github.com/sirupsen/logrus"
)

type Job struct {
	MaskPath     string
	OriginalPath string
	StatsPath    string
	OverlayPath  string
	Annotate     bool
}

type Result struct {
	Records []overlay.ObjectRecord

	StatsWritten   bool
	OverlayWritten bool

	// OverlaySkipped is set when the overlay save overran its deadline.
	OverlaySkipped bool
}

type Extractor struct {
	Loader   overlay.Loader
	Renderer overlay.Renderer

	// Zoom selects the part of the overlay that is saved. The zero value is
	// treated as overlay.FullView.
	Zoom overlay.Zoom

	// SaveTimeout bounds the overlay save. Zero means
	// overlay.DefaultSaveTimeout.
	SaveTimeout time.Duration

	// Progress receives 100 as soon as the statistics workbook is written,
	// whether or not the overlay is saved afterwards.
	Progress progress.Func

	Log logrus.FieldLogger
}

// Extract measures and renders one mask. Both inputs are decoded before
// anything is written, so a load failure leaves no partial output.
func (e *Extractor) Extract(ctx context.Context, job Job) (Result, error) {
	log := e.logger().WithFields(logrus.Fields{
		"mask":     job.MaskPath,
		"original": job.OriginalPath,
	})

	var res Result

	mask, err := e.Loader.LoadMask(ctx, job.MaskPath)
	if err != nil {
		return res, err
	}

	colorImg, intensity, err := e.Loader.LoadOriginal(ctx, job.OriginalPath)
	if err != nil {
		return res, err
	}

	records, err := overlay.ComputeStatistics(mask, intensity)
	if err != nil {
		return res, err
	}
	res.Records = records

	zoom := e.Zoom
	if zoom == (overlay.Zoom{}) {
		zoom = overlay.FullView
	}
	if err := zoom.Validate(); err != nil {
		return res, err
	}

	if err := WriteStatistics(job.StatsPath, records); err != nil {
		return res, err
	}
	res.StatsWritten = true
	log.WithField("objects", len(records)).Infof("ROI information saved to %s", job.StatsPath)
	e.Progress.Report(100)

	rendered, err := e.Renderer.Render(mask, colorImg, job.Annotate)
	if err != nil {
		return res, err
	}

	view, err := overlay.Crop(rendered.View(), zoom)
	if err != nil {
		return res, err
	}

	err = overlay.SaveWithTimeout(ctx, e.SaveTimeout, job.OverlayPath, view)
	if errors.Is(err, overlay.ErrSaveTimeout) {
		log.WithError(err).Warn("Saving overlay taking too long, skipping")
		res.OverlaySkipped = true
		return res, nil
	} else if err != nil {
		return res, err
	}
	res.OverlayWritten = true

	return res, nil
}

func (e *Extractor) logger() logrus.FieldLogger {
	if e.Log == nil {
		return logrus.StandardLogger()
	}

	return e.Log
}
