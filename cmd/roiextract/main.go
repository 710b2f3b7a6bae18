// roiextract measures one label mask against its original image and saves the
// statistics workbook and overlay image. Inputs may be local or gs:// paths.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/carbocation/labels2rois/batch"
	"github.com/carbocation/labels2rois/compileinfo"
	"github.com/carbocation/labels2rois/overlay"
	"github.com/carbocation/labels2rois/roi"
	"github.com/sirupsen/logrus"
)

func main() {
	var maskPath, originalPath, outputDir string
	var annotate, preserveBitDepth bool
	var seed int64
	var timeout time.Duration
	zoom := overlay.FullView

	flag.StringVar(&maskPath, "mask", "", "Path to the label mask (local or gs://)")
	flag.StringVar(&originalPath, "original", "", "Path to the original image (local or gs://)")
	flag.StringVar(&outputDir, "output", ".", "Folder where the .xlsx and _ROI.png files are created")
	flag.BoolVar(&annotate, "annotate", true, "Write label numbers and blend the overlay over the original")
	flag.BoolVar(&preserveBitDepth, "preserve_bit_depth", false, "Measure 16-bit grayscale originals at full depth")
	flag.Int64Var(&seed, "seed", 0, "Seed for random label colors. 0 seeds from the clock.")
	flag.DurationVar(&timeout, "timeout", overlay.DefaultSaveTimeout, "How long to wait for the overlay save")
	flag.Float64Var(&zoom.Factor, "zoom", zoom.Factor, "Zoom factor, 1 or more")
	flag.Float64Var(&zoom.CenterX, "center_x", zoom.CenterX, "Horizontal zoom center as a fraction of the width")
	flag.Float64Var(&zoom.CenterY, "center_y", zoom.CenterY, "Vertical zoom center as a fraction of the height")
	flag.BoolVar(&zoom.Rescale, "rescale", false, "Scale the zoomed window back up to the image width")
	flag.Parse()

	if maskPath == "" || originalPath == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	compileinfo.Log(log)

	if err := zoom.Validate(); err != nil {
		log.Fatalln(err)
	}

	ctx := context.Background()

	loader := overlay.Loader{PreserveBitDepth: preserveBitDepth}
	if strings.HasPrefix(maskPath, "gs://") || strings.HasPrefix(originalPath, "gs://") {
		client, err := storage.NewClient(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
		loader.Storage = client
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		log.Fatalln(err)
	}

	outputs := batch.OutputPathsFor(filepath.Base(maskPath), outputDir)

	extractor := &roi.Extractor{
		Loader: loader,
		Renderer: overlay.Renderer{
			Colors:  overlay.NewRandomColors(seed),
			Opacity: overlay.DefaultOverlayOpacity,
		},
		Zoom:        zoom,
		SaveTimeout: timeout,
		Log:         log,
	}

	res, err := extractor.Extract(ctx, roi.Job{
		MaskPath:     maskPath,
		OriginalPath: originalPath,
		StatsPath:    outputs.Stats,
		OverlayPath:  outputs.Overlay,
		Annotate:     annotate,
	})
	if err != nil {
		log.Fatalln(err)
	}

	log.WithFields(logrus.Fields{
		"objects": len(res.Records),
		"overlay": res.OverlayWritten,
	}).Infoln("Done")
}
