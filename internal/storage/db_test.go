package storage

import (
	"path/filepath"
	"testing"

	"pdfcheck/internal"
)

func TestRunRoundTrip(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	outcomes := []internal.Outcome{
		{FileName: "a.pdf", PatientID: "101", Status: internal.StatusClean},
		{FileName: "b.pdf", PatientID: "102", Status: internal.StatusDiscrepancy, Discrepancies: []internal.Discrepancy{
			{Field: "Insurance", MasterValue: "BCBS", DocumentValue: "Aetna", Explanation: "different insurance company"},
		}},
		{FileName: "c.pdf", Status: internal.StatusUnreadable, ErrorKind: internal.ErrKindUnreadable, ErrorDetail: "bad xref"},
	}
	summary := internal.BatchSummary{Total: 3, Clean: 1, Discrepant: 1, Errored: 1}

	runID, err := db.InsertRun("trace-1", "master.xlsx", summary, outcomes)
	if err != nil {
		t.Fatal(err)
	}
	if runID == 0 {
		t.Fatal("runID=0")
	}

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].TraceID != "trace-1" || runs[0].Total != 3 || runs[0].Errored != 1 {
		t.Fatalf("runs=%+v", runs)
	}

	rows, err := db.GetReportRows(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows=%d", len(rows))
	}
	if rows[0].FileName != "a.pdf" || rows[0].Status != string(internal.StatusClean) {
		t.Fatalf("row0=%+v", rows[0])
	}
	if rows[1].Field != "Insurance" || rows[1].DocumentValue != "Aetna" {
		t.Fatalf("row1=%+v", rows[1])
	}
	if rows[2].Detail != "bad xref" {
		t.Fatalf("row2=%+v", rows[2])
	}
}

func TestGetReportRowsUnknownRun(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.GetReportRows(42); err == nil {
		t.Fatal("expected error for unknown run")
	}
}
