package master

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"pdfcheck/internal"
	"pdfcheck/internal/util"
)

// Load reads the master spreadsheet from disk. The first sheet is used; the
// first non-empty row is treated as the header row and must contain the
// identifier column (matched case-insensitively after trimming).
func Load(path, idColumn string) (*internal.MasterTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open master file %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("master file %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	headerIdx := -1
	for i, row := range rows {
		if hasContent(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("master file %s is empty", path)
	}

	headers := make([]string, 0, len(rows[headerIdx]))
	for _, h := range rows[headerIdx] {
		headers = append(headers, util.NormalizeSpaces(h))
	}

	idIdx := -1
	wanted := util.NormalizeHeaderKey(idColumn)
	for i, h := range headers {
		if util.NormalizeHeaderKey(h) == wanted {
			idIdx = i
			break
		}
	}
	if idIdx < 0 {
		return nil, fmt.Errorf("master file %s: required column %q not found", path, idColumn)
	}

	table := &internal.MasterTable{
		SourceFile: path,
		IDColumn:   headers[idIdx],
		Columns:    headers,
	}

	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if !hasContent(row) {
			continue
		}
		id := util.NormalizeIdentifier(cellAt(row, idIdx))
		if id == "" {
			continue
		}

		fields := make(map[string]string, len(headers))
		for j, h := range headers {
			if h == "" {
				continue
			}
			fields[h] = util.NormalizeSpaces(cellAt(row, j))
		}

		table.Records = append(table.Records, internal.MasterRecord{
			PatientID: id,
			RowNumber: i + 1,
			Fields:    fields,
		})
	}

	return table, nil
}

func hasContent(row []string) bool {
	for _, c := range row {
		if util.NormalizeSpaces(c) != "" {
			return true
		}
	}
	return false
}

func cellAt(row []string, idx int) string {
	if idx >= 0 && idx < len(row) {
		return row[idx]
	}
	return ""
}
