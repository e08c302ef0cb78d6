package export

import (
	"fmt"
	_ "image/png"
	"os"

	"github.com/xuri/excelize/v2"
)

const reportSheet = "Review"

var (
	headerColumns = []any{"Workorder", "Producer", "Operator", "Job", "Notes"}
	tableColumns  = []any{"Location", "Frame Range", "Timecode Range", "Thumbnail"}
)

// Row heights are in points; thumbnails are 74px tall.
const thumbnailRowHeight = 58

// WriteReport writes the review spreadsheet: the work-order header, a
// blank row, then one row per range with its thumbnail embedded in column
// D. Rows whose thumbnail is missing keep an empty cell.
func WriteReport(path string, report Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	h := report.Header
	if err := f.SetSheetRow(reportSheet, "A1", &headerColumns); err != nil {
		return err
	}
	if err := f.SetSheetRow(reportSheet, "A2", &[]any{h.WorkOrder, h.Producer, h.Operator, h.Job, h.Notes}); err != nil {
		return err
	}
	if err := f.SetSheetRow(reportSheet, "A4", &tableColumns); err != nil {
		return err
	}
	if err := f.SetCellStyle(reportSheet, "A1", "E1", bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(reportSheet, "A4", "D4", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(reportSheet, "A", "A", 60); err != nil {
		return err
	}
	if err := f.SetColWidth(reportSheet, "B", "C", 26); err != nil {
		return err
	}
	if err := f.SetColWidth(reportSheet, "D", "D", 16); err != nil {
		return err
	}

	for i, row := range report.Rows {
		rowNum := i + 5
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		values := []any{row.Range.Location, row.Range.FrameRangeString(), row.Range.TimecodeRangeString()}
		if err := f.SetSheetRow(reportSheet, cell, &values); err != nil {
			return fmt.Errorf("row %d: %w", rowNum, err)
		}

		if !hasFile(row.ThumbnailPath) {
			continue
		}
		if err := f.SetRowHeight(reportSheet, rowNum, thumbnailRowHeight); err != nil {
			return err
		}
		thumbCell, err := excelize.CoordinatesToCellName(4, rowNum)
		if err != nil {
			return err
		}
		if err := f.AddPicture(reportSheet, thumbCell, row.ThumbnailPath, &excelize.GraphicOptions{
			AltText:     fmt.Sprintf("frame %d", row.Range.SampledFrame),
			OffsetX:     2,
			OffsetY:     2,
			Positioning: "oneCell",
		}); err != nil {
			return fmt.Errorf("embed thumbnail %s: %w", row.ThumbnailPath, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func hasFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}
