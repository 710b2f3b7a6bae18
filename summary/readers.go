package summary

import (
	"fmt"

	"github.com/carbocation/pfx"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// readXLSX returns the raw cell values of the first sheet.
func readXLSX(filePath string) ([][]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", filePath, err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &MalformedStatsFileError{Path: filePath, Reason: "workbook has no sheets"}
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", filePath, err))
	}

	return rows, nil
}

// readXLS returns the cell values of the first sheet of a legacy workbook.
func readXLS(filePath string) ([][]string, error) {
	spreadsheet, err := xls.Open(filePath, "utf-8")
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", filePath, err))
	}

	if spreadsheet.NumSheets() < 1 {
		return nil, &MalformedStatsFileError{Path: filePath, Reason: "workbook has no sheets"}
	}

	sheet := spreadsheet.GetSheet(0)
	if sheet == nil {
		return nil, &MalformedStatsFileError{Path: filePath, Reason: "sheet 0 was nil"}
	}

	out := make([][]string, 0, int(sheet.MaxRow)+1)
	for rowID := 0; rowID <= int(sheet.MaxRow); rowID++ {
		row := sheet.Row(rowID)
		if row == nil {
			out = append(out, nil)
			continue
		}

		cells := make([]string, 0, row.LastCol()+1)
		for colID := 0; colID <= row.LastCol(); colID++ {
			cells = append(cells, row.Col(colID))
		}
		out = append(out, cells)
	}

	return out, nil
}
