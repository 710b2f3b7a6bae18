package roi

import (
	"fmt"

	"github.com/carbocation/labels2rois/overlay"
	"github.com/carbocation/pfx"
	"github.com/xuri/excelize/v2"
)

// StatisticsHeader is the header row of every per-image statistics workbook.
var StatisticsHeader = []string{"Label", "Area", "Integrated Density", "Mean Gray Value", "Standard Deviation"}

// WriteStatistics writes one row per record, in the order given, below the
// header row on the first sheet of a new workbook at path.
func WriteStatistics(path string, records []overlay.ObjectRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := make([]interface{}, 0, len(StatisticsHeader))
	for _, v := range StatisticsHeader {
		header = append(header, v)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return pfx.Err(err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return pfx.Err(err)
		}

		row := []interface{}{rec.Label, rec.Area, rec.IntegratedDensity, rec.Mean, rec.StdDev}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return pfx.Err(fmt.Errorf("label %d: %w", rec.Label, err))
		}
	}

	if err := f.SaveAs(path); err != nil {
		return pfx.Err(err)
	}

	return nil
}
