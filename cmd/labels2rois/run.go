package main

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/carbocation/labels2rois/batch"
	"github.com/carbocation/labels2rois/config"
	"github.com/carbocation/labels2rois/overlay"
	"github.com/carbocation/labels2rois/progress"
	"github.com/carbocation/labels2rois/roi"
	"github.com/carbocation/labels2rois/segment"
	"github.com/carbocation/labels2rois/summary"
	"github.com/sirupsen/logrus"
)

const reportFileName = "BatchReport.csv"

func run(ctx context.Context, cfg config.Config, tracker *progress.Tracker, log logrus.FieldLogger) error {
	if cfg.RunSegmentation {
		tracker.Begin("segmentation")

		seg := &segment.CellposeCLI{Log: log}
		if err := seg.Segment(ctx, cfg.BaseDir, cfg.Segmentation, tracker.BatchFunc()); err != nil {
			return err
		}
		log.Infoln("Segmentation completed")
	}

	if cfg.RunLabels2ROIs {
		tracker.Begin("labels2rois")

		report, err := extract(ctx, cfg, tracker, log)
		if err != nil {
			return err
		}

		reportPath := filepath.Join(cfg.OutputDir, summary.Dir, reportFileName)
		if err := report.WriteCSV(reportPath); err != nil {
			return err
		}

		log.WithFields(logrus.Fields{
			"processed": len(report.Processed()),
			"skipped":   len(report.Skipped()),
			"failed":    len(report.Failed()),
			"report":    reportPath,
		}).Infoln("ROI extraction completed")
	}

	tracker.Begin("summary")

	summaryPath := summary.PathFor(cfg.OutputDir)
	rows, err := summary.Summarize(cfg.OutputDir, summaryPath)
	if errors.Is(err, summary.ErrNoInputFiles) {
		log.WithError(err).Warnln("Nothing to summarize")
		tracker.SetBatch(100)
		return nil
	} else if err != nil {
		return err
	}
	tracker.SetBatch(100)

	log.WithField("files", len(rows)).Infof("Summary saved to %s", summaryPath)

	return nil
}

func extract(ctx context.Context, cfg config.Config, tracker *progress.Tracker, log logrus.FieldLogger) (batch.Report, error) {
	colors, err := cfg.Colors()
	if err != nil {
		return batch.Report{}, err
	}

	runner := &batch.Runner{
		Extractor: &roi.Extractor{
			Loader: overlay.Loader{PreserveBitDepth: cfg.PreserveBitDepth},
			Renderer: overlay.Renderer{
				Colors:  colors,
				Opacity: overlay.DefaultOverlayOpacity,
			},
			Zoom:        cfg.Zoom,
			SaveTimeout: cfg.SaveTimeout(),
			Progress:    tracker.FileFunc(),
			Log:         log,
		},
		Progress: tracker.BatchFunc(),
		Log:      log,
	}

	return runner.Run(ctx, cfg.BaseDir, cfg.OutputDir, cfg.Annotate)
}
