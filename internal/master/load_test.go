package master

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeMasterFile(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, value := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				t.Fatal(err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "master.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeMasterFile(t, [][]any{
		{"Patient ID", "Name", "Insurance"},
		{"101", "John Smith", "BCBS"},
		{" 102 ", "Jane Doe", "Aetna"},
		{"", "No ID Row", "Cigna"},
	})

	table, err := Load(path, "Patient ID")
	if err != nil {
		t.Fatal(err)
	}
	if table.IDColumn != "Patient ID" {
		t.Fatalf("idColumn=%q", table.IDColumn)
	}
	if len(table.Records) != 2 {
		t.Fatalf("records=%d", len(table.Records))
	}
	if table.Records[0].PatientID != "101" || table.Records[0].Fields["Insurance"] != "BCBS" {
		t.Fatalf("record0=%+v", table.Records[0])
	}
	// Identifier cells are trimmed on load.
	if table.Records[1].PatientID != "102" {
		t.Fatalf("record1=%+v", table.Records[1])
	}
}

func TestLoadIDColumnCaseInsensitive(t *testing.T) {
	path := writeMasterFile(t, [][]any{
		{"PATIENT  ID", "Name"},
		{"7", "John Smith"},
	})
	table, err := Load(path, "Patient ID")
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Records) != 1 || table.Records[0].PatientID != "7" {
		t.Fatalf("records=%+v", table.Records)
	}
}

func TestLoadMissingIDColumn(t *testing.T) {
	path := writeMasterFile(t, [][]any{
		{"Name", "Insurance"},
		{"John Smith", "BCBS"},
	})
	_, err := Load(path, "Patient ID")
	if err == nil || !strings.Contains(err.Error(), "Patient ID") {
		t.Fatalf("err=%v", err)
	}
}
