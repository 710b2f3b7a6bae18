package batch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveOriginalNested(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "sample.csv"))
	touch(t, filepath.Join(root, "sample_cp_masks.png"))
	touch(t, filepath.Join(root, "a", "b", "sample.tif"))

	got, err := ResolveOriginal("sample_cp_masks.png", root)
	if err != nil {
		t.Fatal(err)
	}

	if expected := filepath.Join(root, "a", "b", "sample.tif"); got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}

func TestResolveOriginalExtensionCase(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "cell_07.TIFF"))

	got, err := ResolveOriginal(filepath.Join("elsewhere", "cell_07_cp_masks.png"), root)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "cell_07.TIFF" {
		t.Errorf("unexpected match %s", got)
	}
}

func TestResolveOriginalNotFound(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "sample.csv"))
	touch(t, filepath.Join(root, "sample_cp_masks.png"))

	_, err := ResolveOriginal("sample_cp_masks.png", root)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveOriginalMissingRoot(t *testing.T) {
	_, err := ResolveOriginal("sample_cp_masks.png", filepath.Join(t.TempDir(), "absent"))
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a walk error, got %v", err)
	}
}

func TestOutputPathsFor(t *testing.T) {
	got := OutputPathsFor(filepath.Join("in", "img1_cp_masks.png"), "out")

	expected := Outputs{
		Stats:   filepath.Join("out", "img1_cp_masks.xlsx"),
		Overlay: filepath.Join("out", "img1_cp_masks_ROI.png"),
	}
	if got != expected {
		t.Errorf("expected %+v, got %+v", expected, got)
	}

	plan := PlanOutputs([]string{"a_cp_masks.png", "b_cp_masks.tif"}, "out")
	if len(plan) != 2 || plan["b_cp_masks.tif"].Overlay != filepath.Join("out", "b_cp_masks_ROI.png") {
		t.Errorf("unexpected plan %+v", plan)
	}
}

func TestListMasks(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "x_cp_masks.png"))
	touch(t, filepath.Join(dir, "x.png"))
	touch(t, filepath.Join(dir, "nested_cp_masks", "y_cp_masks.png"))

	got, err := ListMasks(dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 1 || filepath.Base(got[0]) != "x_cp_masks.png" {
		t.Errorf("unexpected masks %v", got)
	}
}
