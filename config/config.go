// Package config holds the settings of a pipeline run. Settings come from a
// JSON or YAML file, chosen by extension, and are then overridden by flags.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/carbocation/labels2rois/overlay"
	"github.com/carbocation/labels2rois/segment"
	"github.com/carbocation/pfx"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ConfigPath string `json:"-" yaml:"-"`

	// BaseDir holds the originals, and after segmentation their masks.
	BaseDir string `json:"base_dir" yaml:"base_dir"`

	// OutputDir receives per-mask statistics and overlays, and the
	// SummarySheet directory. Defaults to BaseDir.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	RunSegmentation bool `json:"run_segmentation" yaml:"run_segmentation"`
	RunLabels2ROIs  bool `json:"run_labels2rois" yaml:"run_labels2rois"`
	Annotate        bool `json:"annotate" yaml:"annotate"`

	Segmentation segment.Params `json:"segmentation" yaml:"segmentation"`
	Zoom         overlay.Zoom   `json:"zoom" yaml:"zoom"`

	SaveTimeoutSeconds float64 `json:"save_timeout_seconds" yaml:"save_timeout_seconds"`

	// Palette lists hex color codes for labels. Empty means random colors,
	// seeded with Seed (zero seeds from the clock).
	Palette []string `json:"palette" yaml:"palette"`
	Seed    int64    `json:"seed" yaml:"seed"`

	PreserveBitDepth bool `json:"preserve_bit_depth" yaml:"preserve_bit_depth"`

	// HTTPAddr, when set, serves progress while the pipeline runs.
	HTTPAddr string `json:"http_addr" yaml:"http_addr"`

	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`
}

func Default() Config {
	return Config{
		RunSegmentation:    true,
		RunLabels2ROIs:     true,
		Annotate:           true,
		Segmentation:       segment.DefaultParams(),
		Zoom:               overlay.FullView,
		SaveTimeoutSeconds: overlay.DefaultSaveTimeout.Seconds(),
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// Load reads path over Default(). Files ending in .yaml or .yml are YAML,
// everything else is JSON.
func Load(path string) (Config, error) {
	out := Default()
	out.ConfigPath = path

	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		return out, pfx.Err(err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &out); err != nil {
			return out, pfx.Err(fmt.Errorf("%s: %w", path, err))
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&out); err != nil {
			if e, ok := err.(*json.SyntaxError); ok {
				return out, pfx.Err(fmt.Errorf("%s: syntax error at byte offset %d: %w", path, e.Offset, err))
			}
			return out, pfx.Err(fmt.Errorf("%s: %w", path, err))
		}
	}

	out.Normalize()

	return out, pfx.Err(out.Validate())
}

// Normalize expands ~ in paths and fills in derived defaults.
func (c *Config) Normalize() {
	c.BaseDir = ExpandHome(c.BaseDir)
	c.OutputDir = ExpandHome(c.OutputDir)
	if c.OutputDir == "" {
		c.OutputDir = c.BaseDir
	}

	if c.Zoom.Factor == 0 {
		c.Zoom = overlay.FullView
	}

	for i, v := range c.Palette {
		c.Palette[i] = strings.ToLower(v)
	}
}

func (c Config) Validate() error {
	if c.SaveTimeoutSeconds < 0 {
		return fmt.Errorf("save_timeout_seconds must not be negative, got %v", c.SaveTimeoutSeconds)
	}
	if c.Segmentation.Diameter < 0 {
		return fmt.Errorf("segmentation diameter must not be negative, got %v", c.Segmentation.Diameter)
	}
	if len(c.Palette) > 0 {
		if _, err := overlay.NewPaletteColors(c.Palette); err != nil {
			return err
		}
	}

	return c.Zoom.Validate()
}

// SaveTimeout is SaveTimeoutSeconds as a duration. Zero means the overlay
// default.
func (c Config) SaveTimeout() time.Duration {
	if c.SaveTimeoutSeconds <= 0 {
		return overlay.DefaultSaveTimeout
	}

	return time.Duration(c.SaveTimeoutSeconds * float64(time.Second))
}

// Colors builds the label color assigner described by Palette and Seed.
func (c Config) Colors() (overlay.ColorAssigner, error) {
	if len(c.Palette) == 0 {
		return overlay.NewRandomColors(c.Seed), nil
	}

	return overlay.NewPaletteColors(c.Palette)
}

// ExpandHome expands a leading ~ to the current user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	usr, err := user.Current()
	if err != nil {
		return path
	}

	if path == "~" {
		return usr.HomeDir
	}

	return filepath.Join(usr.HomeDir, path[2:])
}
