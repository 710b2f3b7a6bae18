package roi

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/carbocation/labels2rois/overlay"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// fixture writes a 4x2 mask with labels 1 and 2 and a matching grayscale
// original, and returns their paths.
func fixture(t *testing.T, dir string) (string, string) {
	t.Helper()

	mask := image.NewGray(image.Rect(0, 0, 4, 2))
	original := image.NewGray(image.Rect(0, 0, 4, 2))
	for x := 0; x < 4; x++ {
		for y := 0; y < 2; y++ {
			original.SetGray(x, y, color.Gray{Y: uint8(10 * (x + 1))})
		}
	}
	mask.SetGray(0, 0, color.Gray{Y: 1})
	mask.SetGray(1, 0, color.Gray{Y: 1})
	mask.SetGray(3, 0, color.Gray{Y: 2})
	mask.SetGray(3, 1, color.Gray{Y: 2})

	maskPath := filepath.Join(dir, "sample_cp_masks.png")
	originalPath := filepath.Join(dir, "sample.png")
	writePNG(t, maskPath, mask)
	writePNG(t, originalPath, original)

	return maskPath, originalPath
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetList()[0], excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatal(err)
	}

	return rows
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	maskPath, originalPath := fixture(t, dir)

	var reports []float64
	e := &Extractor{
		Renderer: overlay.Renderer{Colors: overlay.NewRandomColors(1)},
		Progress: func(pct float64) { reports = append(reports, pct) },
		Log:      quietLogger(),
	}

	job := Job{
		MaskPath:     maskPath,
		OriginalPath: originalPath,
		StatsPath:    filepath.Join(dir, "sample_cp_masks.xlsx"),
		OverlayPath:  filepath.Join(dir, "sample_cp_masks_ROI.png"),
		Annotate:     true,
	}

	res, err := e.Extract(context.Background(), job)
	if err != nil {
		t.Fatal(err)
	}

	if !res.StatsWritten || !res.OverlayWritten || res.OverlaySkipped {
		t.Errorf("unexpected result flags %+v", res)
	}
	if !reflect.DeepEqual(reports, []float64{100}) {
		t.Errorf("expected a single 100 report, got %v", reports)
	}

	expected := [][]string{
		StatisticsHeader,
		{"1", "2", "30", "15", "5"},
		{"2", "2", "80", "40", "0"},
	}
	if got := readRows(t, job.StatsPath); !reflect.DeepEqual(got, expected) {
		t.Errorf("expected rows %v, got %v", expected, got)
	}

	f, err := os.Open(job.OverlayPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 4 || cfg.Height != 2 {
		t.Errorf("expected a 4x2 overlay, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	maskPath, originalPath := fixture(t, dir)

	e := &Extractor{Log: quietLogger()}
	job := Job{
		MaskPath:     maskPath,
		OriginalPath: originalPath,
		StatsPath:    filepath.Join(dir, "stats.xlsx"),
		OverlayPath:  filepath.Join(dir, "roi.png"),
	}

	if _, err := e.Extract(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	first := readRows(t, job.StatsPath)

	if _, err := e.Extract(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	second := readRows(t, job.StatsPath)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("rows changed between runs:\n%v\n%v", first, second)
	}
}

func TestExtractLoadFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	maskPath, _ := fixture(t, dir)

	called := false
	e := &Extractor{
		Progress: func(float64) { called = true },
		Log:      quietLogger(),
	}

	job := Job{
		MaskPath:     maskPath,
		OriginalPath: filepath.Join(dir, "absent.png"),
		StatsPath:    filepath.Join(dir, "stats.xlsx"),
		OverlayPath:  filepath.Join(dir, "roi.png"),
	}

	_, err := e.Extract(context.Background(), job)
	if !errors.Is(err, overlay.ErrImageLoad) {
		t.Fatalf("expected ErrImageLoad, got %v", err)
	}

	for _, p := range []string{job.StatsPath, job.OverlayPath} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s should not exist", p)
		}
	}
	if called {
		t.Errorf("progress should not be reported when loading fails")
	}
}

func TestExtractOverlayFailureKeepsStatistics(t *testing.T) {
	dir := t.TempDir()
	maskPath, originalPath := fixture(t, dir)

	var reports []float64
	e := &Extractor{
		Progress:    func(pct float64) { reports = append(reports, pct) },
		SaveTimeout: time.Second,
		Log:         quietLogger(),
	}

	job := Job{
		MaskPath:     maskPath,
		OriginalPath: originalPath,
		StatsPath:    filepath.Join(dir, "stats.xlsx"),
		OverlayPath:  filepath.Join(dir, "missing", "roi.png"),
	}

	res, err := e.Extract(context.Background(), job)
	if !errors.Is(err, overlay.ErrRenderIO) {
		t.Fatalf("expected ErrRenderIO, got %v", err)
	}
	if !res.StatsWritten || res.OverlayWritten {
		t.Errorf("unexpected result flags %+v", res)
	}
	if len(reports) != 1 || reports[0] != 100 {
		t.Errorf("statistics completion should still be reported, got %v", reports)
	}
}

func TestExtractDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	maskPath, _ := fixture(t, dir)

	small := filepath.Join(dir, "small.png")
	writePNG(t, small, image.NewGray(image.Rect(0, 0, 2, 2)))

	_, err := (&Extractor{Log: quietLogger()}).Extract(context.Background(), Job{
		MaskPath:     maskPath,
		OriginalPath: small,
		StatsPath:    filepath.Join(dir, "stats.xlsx"),
		OverlayPath:  filepath.Join(dir, "roi.png"),
	})
	if !errors.Is(err, overlay.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}
