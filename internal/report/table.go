package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"pdfcheck/internal"
)

// RenderRows prints the flat report rows as a console table.
func RenderRows(w io.Writer, rows []internal.ReportRow) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"File", "Patient ID", "Status", "Field", "Master", "Document", "Detail"})
	table.SetAutoWrapText(false)
	for _, r := range rows {
		table.Append([]string{r.FileName, r.PatientID, r.Status, r.Field, r.MasterValue, r.DocumentValue, r.Detail})
	}
	table.Render()
}

func RenderSummary(w io.Writer, s internal.BatchSummary) {
	fmt.Fprintf(w, "total=%d clean=%d discrepancies=%d unmatched=%d errors=%d\n",
		s.Total, s.Clean, s.Discrepant, s.Unmatched, s.Errored)
}

func RenderRuns(w io.Writer, runs []internal.RunRow) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Run", "Trace", "Master file", "Total", "Clean", "Discrepant", "Unmatched", "Errored", "Created"})
	for _, r := range runs {
		table.Append([]string{
			fmt.Sprintf("%d", r.ID), r.TraceID, r.MasterFile,
			fmt.Sprintf("%d", r.Total), fmt.Sprintf("%d", r.Clean),
			fmt.Sprintf("%d", r.Discrepant), fmt.Sprintf("%d", r.Unmatched),
			fmt.Sprintf("%d", r.Errored), r.CreatedAt,
		})
	}
	table.Render()
}
