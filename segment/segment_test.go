package segment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// TestHelperProcess stands in for cellpose when launched by the tests below.
// It writes the mask that cellpose would have written.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("LABELS2ROIS_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for i, v := range args {
		if v == "--image_path" && i+1 < len(args) {
			image := args[i+1]
			base := strings.TrimSuffix(image, filepath.Ext(image))
			if err := os.WriteFile(base+"_cp_masks.png", nil, 0644); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			return
		}
	}

	fmt.Fprintln(os.Stderr, "no --image_path")
	os.Exit(3)
}

func helperCLI() *CellposeCLI {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return &CellposeCLI{
		Launcher: []string{os.Args[0], "-test.run=TestHelperProcess", "--"},
		Env:      []string{"LABELS2ROIS_HELPER_PROCESS=1"},
		Log:      log,
	}
}

func TestSegmentNoImages(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	var reports []float64
	err := helperCLI().Segment(context.Background(), dir, DefaultParams(), func(pct float64) { reports = append(reports, pct) })
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(reports, []float64{100}) {
		t.Errorf("expected a single 100 report, got %v", reports)
	}
}

func TestSegmentWritesMasks(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.tif", "b.png", "old_cp_masks.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	var reports []float64
	err := helperCLI().Segment(context.Background(), dir, DefaultParams(), func(pct float64) { reports = append(reports, pct) })
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"a_cp_masks.png", "b_cp_masks.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	if !reflect.DeepEqual(reports, []float64{0, 50, 100}) {
		t.Errorf("unexpected progress %v", reports)
	}
}

func TestSegmentLaunchFailure(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.tif"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	cli := &CellposeCLI{Launcher: []string{filepath.Join(dir, "no-such-binary")}, Log: logrus.New()}
	if err := cli.Segment(context.Background(), dir, DefaultParams(), nil); err == nil {
		t.Fatal("expected an error")
	}
}

func TestArgs(t *testing.T) {
	p := Params{
		Diameter:          17.5,
		FlowThreshold:     0.4,
		CellprobThreshold: -1,
		Invert:            true,
		TileNormBlocksize: 100,
		GPU:               true,
		ExtraArgs:         []string{"--verbose"},
	}

	expected := []string{
		"--image_path", "img.tif",
		"--pretrained_model", "cyto",
		"--chan", "0",
		"--chan2", "0",
		"--diameter", "17.5",
		"--flow_threshold", "0.4",
		"--cellprob_threshold", "-1",
		"--save_png",
		"--no_npy",
		"--invert",
		"--tile_norm_blocksize", "100",
		"--use_gpu",
		"--verbose",
	}

	if got := Args("img.tif", p); !reflect.DeepEqual(got, expected) {
		t.Errorf("expected\n%v\ngot\n%v", expected, got)
	}
}

func TestImagesSkipsMasks(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.JPG", "a_cp_masks.png", "b.csv"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := Images(dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 1 || filepath.Base(got[0]) != "a.JPG" {
		t.Errorf("unexpected images %v", got)
	}
}
