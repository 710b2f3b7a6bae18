// labels2rois segments a directory of microscopy images, measures every
// labeled object against its original image, and summarizes the batch.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/carbocation/labels2rois/compileinfo"
	"github.com/carbocation/labels2rois/config"
	"github.com/carbocation/labels2rois/progress"
	"github.com/sirupsen/logrus"
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags]\n", os.Args[0])
		flag.PrintDefaults()

		fmt.Fprintln(flag.CommandLine.Output(), "\nExample JSON config file layout:")
		bts, err := json.MarshalIndent(config.Default(), "", "  ")
		if err == nil {
			fmt.Fprintln(flag.CommandLine.Output(), string(bts))
		}
	}
}

func main() {
	var configPath string

	cfg := config.Default()

	flag.StringVar(&configPath, "config", "", "(Optional) JSON or YAML config file. Flags that are set override it.")
	flag.StringVar(&cfg.BaseDir, "dir", "", "Directory holding the original images (and their masks)")
	flag.StringVar(&cfg.OutputDir, "output", "", "(Optional) Directory for statistics, overlays and the summary. Defaults to -dir.")
	flag.BoolVar(&cfg.RunSegmentation, "segment", cfg.RunSegmentation, "Run cellpose segmentation before measuring")
	flag.BoolVar(&cfg.RunLabels2ROIs, "labels2rois", cfg.RunLabels2ROIs, "Measure every mask and render its overlay")
	flag.BoolVar(&cfg.Annotate, "annotate", cfg.Annotate, "Write label numbers on the overlay and blend it over the original")
	flag.Float64Var(&cfg.Segmentation.Diameter, "diameter", cfg.Segmentation.Diameter, "Expected object diameter in pixels. 0 lets cellpose estimate it.")
	flag.StringVar(&cfg.Segmentation.Model, "model", cfg.Segmentation.Model, "Pretrained cellpose model")
	flag.BoolVar(&cfg.Segmentation.GPU, "gpu", cfg.Segmentation.GPU, "Let cellpose use the GPU")
	flag.Float64Var(&cfg.SaveTimeoutSeconds, "save_timeout", cfg.SaveTimeoutSeconds, "Seconds to wait for an overlay save before skipping it")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Seed for random label colors. 0 seeds from the clock.")
	flag.BoolVar(&cfg.PreserveBitDepth, "preserve_bit_depth", cfg.PreserveBitDepth, "Measure 16-bit grayscale originals at full depth instead of 8 bits")
	flag.StringVar(&cfg.HTTPAddr, "http", "", "(Optional) Address such as :8080 to serve progress at /progress")
	flag.StringVar(&cfg.LogLevel, "log_level", cfg.LogLevel, "Log level: debug, info, warn or error")
	flag.StringVar(&cfg.LogFormat, "log_format", cfg.LogFormat, "Log format: text or json")
	flag.Parse()

	if configPath != "" {
		fromFile, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			flag.Usage()
			os.Exit(1)
		}
		cfg = overrideWithFlags(fromFile, cfg)
	}
	cfg.Normalize()

	log, err := initLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	compileinfo.Log(log)

	if cfg.BaseDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalln(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := &progress.Tracker{}
	if cfg.HTTPAddr != "" {
		go func() {
			log.Infof("Serving progress at http://%s/progress", cfg.HTTPAddr)
			if err := http.ListenAndServe(cfg.HTTPAddr, progress.Handler(tracker)); err != nil {
				log.WithError(err).Errorln("Progress server stopped")
			}
		}()
	}

	if err := run(ctx, cfg, tracker, log); err != nil {
		log.Fatalln(err)
	}
}

// overrideWithFlags copies onto base every value whose flag was set on the
// command line.
func overrideWithFlags(base, flags config.Config) config.Config {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dir":
			base.BaseDir = flags.BaseDir
		case "output":
			base.OutputDir = flags.OutputDir
		case "segment":
			base.RunSegmentation = flags.RunSegmentation
		case "labels2rois":
			base.RunLabels2ROIs = flags.RunLabels2ROIs
		case "annotate":
			base.Annotate = flags.Annotate
		case "diameter":
			base.Segmentation.Diameter = flags.Segmentation.Diameter
		case "model":
			base.Segmentation.Model = flags.Segmentation.Model
		case "gpu":
			base.Segmentation.GPU = flags.Segmentation.GPU
		case "save_timeout":
			base.SaveTimeoutSeconds = flags.SaveTimeoutSeconds
		case "seed":
			base.Seed = flags.Seed
		case "preserve_bit_depth":
			base.PreserveBitDepth = flags.PreserveBitDepth
		case "http":
			base.HTTPAddr = flags.HTTPAddr
		case "log_level":
			base.LogLevel = flags.LogLevel
		case "log_format":
			base.LogFormat = flags.LogFormat
		}
	})

	return base
}

func initLogger(level, format string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	return logger, nil
}
