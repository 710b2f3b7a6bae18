// Package summary rolls the per-image statistics workbooks of a batch up into
// one spreadsheet.
package summary

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/montanaflynn/stats"
	"github.com/xuri/excelize/v2"
)

const (
	// Dir and FileName place the summary relative to a batch's output
	// directory.
	Dir      = "SummarySheet"
	FileName = "Summary.xlsx"

	labelColumn   = "Label"
	densityColumn = "Integrated Density"

	// Position of the integrated density column when its header is missing.
	densityFallbackIndex = 2
)

var Header = []string{"File Location", "Number of Objects", "Sum of Integrated Density"}

var (
	ErrNoInputFiles       = errors.New("no statistics files found")
	ErrMalformedStatsFile = errors.New("malformed statistics file")
)

type MalformedStatsFileError struct {
	Path   string
	Reason string
}

func (e *MalformedStatsFileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *MalformedStatsFileError) Is(target error) bool { return target == ErrMalformedStatsFile }

// Row summarizes one statistics file.
type Row struct {
	FileLocation string

	// Objects is the last non-empty value of the Label column. Labels are
	// written in ascending order, so for gap-free labels this is the object
	// count.
	Objects int

	IntegratedDensity float64

	// MaxLabel and DistinctLabels are alternative object counts that do not
	// depend on row order or gap-free labels. They are not written out.
	MaxLabel       int
	DistinctLabels int
}

// PathFor returns where the summary of outputDir is written.
func PathFor(outputDir string) string {
	return filepath.Join(outputDir, Dir, FileName)
}

// Aggregate reads every .xlsx and .xls file directly inside statsDir, in
// directory order. Any malformed file aborts the whole aggregation: a partial
// summary is worse than none.
func Aggregate(statsDir string) ([]Row, error) {
	entries, err := os.ReadDir(statsDir)
	if err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]Row, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".xlsx" && ext != ".xls" {
			continue
		}

		filePath := filepath.Join(statsDir, entry.Name())

		var table [][]string
		if ext == ".xls" {
			table, err = readXLS(filePath)
		} else {
			table, err = readXLSX(filePath)
		}
		if err != nil {
			return nil, err
		}

		row, err := summarize(filePath, table)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", statsDir, ErrNoInputFiles)
	}

	return out, nil
}

// summarize computes the Row of one statistics table whose first row is the
// header.
func summarize(filePath string, table [][]string) (Row, error) {
	row := Row{FileLocation: filePath}

	if len(table) == 0 {
		return row, &MalformedStatsFileError{Path: filePath, Reason: "no header row"}
	}

	labelIdx, densityIdx := -1, -1
	for i, name := range table[0] {
		switch strings.TrimSpace(name) {
		case labelColumn:
			labelIdx = i
		case densityColumn:
			densityIdx = i
		}
	}
	if labelIdx < 0 {
		return row, &MalformedStatsFileError{Path: filePath, Reason: fmt.Sprintf("no %q column", labelColumn)}
	}
	if densityIdx < 0 {
		densityIdx = densityFallbackIndex
	}

	labels := make([]float64, 0, len(table)-1)
	densities := make([]float64, 0, len(table)-1)

	for i, cells := range table[1:] {
		if v, ok, err := numericCell(cells, labelIdx); err != nil {
			return row, &MalformedStatsFileError{Path: filePath, Reason: fmt.Sprintf("row %d: Label: %v", i+2, err)}
		} else if ok {
			labels = append(labels, v)
		}

		if v, ok, err := numericCell(cells, densityIdx); err != nil {
			return row, &MalformedStatsFileError{Path: filePath, Reason: fmt.Sprintf("row %d: %s: %v", i+2, densityColumn, err)}
		} else if ok {
			densities = append(densities, v)
		}
	}

	// A workbook for a mask without objects has only its header
	if len(labels) == 0 {
		return row, nil
	}

	row.Objects = int(labels[len(labels)-1])

	maxLabel, err := stats.Max(labels)
	if err != nil {
		return row, pfx.Err(err)
	}
	row.MaxLabel = int(maxLabel)

	distinct := make(map[float64]struct{}, len(labels))
	for _, v := range labels {
		distinct[v] = struct{}{}
	}
	row.DistinctLabels = len(distinct)

	if len(densities) > 0 {
		row.IntegratedDensity, err = stats.Sum(densities)
		if err != nil {
			return row, pfx.Err(err)
		}
	}

	return row, nil
}

// numericCell parses cells[idx]. Missing and blank cells report ok == false.
func numericCell(cells []string, idx int) (float64, bool, error) {
	if idx >= len(cells) {
		return 0, false, nil
	}

	s := strings.TrimSpace(cells[idx])
	if s == "" {
		return 0, false, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}

	return v, true, nil
}

// Summarize aggregates statsDir and writes the summary to path.
func Summarize(statsDir, path string) ([]Row, error) {
	rows, err := Aggregate(statsDir)
	if err != nil {
		return nil, err
	}

	return rows, Write(path, rows)
}

// Write saves rows, in order, to a new workbook at path. The parent directory
// is created when missing.
func Write(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return pfx.Err(err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := make([]interface{}, 0, len(Header))
	for _, v := range Header {
		header = append(header, v)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return pfx.Err(err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return pfx.Err(err)
		}

		values := []interface{}{r.FileLocation, r.Objects, r.IntegratedDensity}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return pfx.Err(err)
		}
	}

	return pfx.Err(f.SaveAs(path))
}
