package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"pdfcheck/internal"
)

// BuildReportRows flattens outcomes into export rows: one row per
// discrepancy entry, or a single row for documents with no discrepancies.
func BuildReportRows(outcomes []internal.Outcome) []internal.ReportRow {
	rows := make([]internal.ReportRow, 0, len(outcomes))
	for _, o := range outcomes {
		if len(o.Discrepancies) == 0 {
			rows = append(rows, internal.ReportRow{
				FileName:  o.FileName,
				PatientID: o.PatientID,
				Status:    string(o.Status),
				Detail:    o.ErrorDetail,
			})
			continue
		}
		for _, d := range o.Discrepancies {
			rows = append(rows, internal.ReportRow{
				FileName:      o.FileName,
				PatientID:     o.PatientID,
				Status:        string(o.Status),
				Field:         d.Field,
				MasterValue:   d.MasterValue,
				DocumentValue: d.DocumentValue,
				Detail:        d.Explanation,
			})
		}
	}
	return rows
}

// FilterProblemRows keeps only discrepancy and error rows. The result is a
// strict subset of the full report: clean documents never appear.
func FilterProblemRows(rows []internal.ReportRow) []internal.ReportRow {
	out := make([]internal.ReportRow, 0, len(rows))
	for _, r := range rows {
		switch internal.OutcomeStatus(r.Status) {
		case internal.StatusClean:
			continue
		default:
			out = append(out, r)
		}
	}
	return out
}

func ExportRowsToXLSX(rows []internal.ReportRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"filename", "patient_id", "status",
		"field", "master_value", "document_value", "detail",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.FileName)
		set(2, row.PatientID)
		set(3, row.Status)
		set(4, row.Field)
		set(5, row.MasterValue)
		set(6, row.DocumentValue)
		set(7, row.Detail)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
