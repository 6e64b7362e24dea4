package master

import (
	"pdfcheck/internal"
	"pdfcheck/internal/util"
)

// Index maps identifiers to master records for O(1) lookup across a batch.
// When the spreadsheet carries duplicate identifiers the first row wins and
// the extra occurrences are counted in Duplicates.
type Index struct {
	ByID       map[string]internal.MasterRecord
	Duplicates map[string]int
}

func BuildIndex(table *internal.MasterTable) *Index {
	idx := &Index{
		ByID:       map[string]internal.MasterRecord{},
		Duplicates: map[string]int{},
	}
	for _, rec := range table.Records {
		if _, exists := idx.ByID[rec.PatientID]; exists {
			idx.Duplicates[rec.PatientID]++
			continue
		}
		idx.ByID[rec.PatientID] = rec
	}
	return idx
}

func (i *Index) Lookup(id string) (internal.MasterRecord, bool) {
	rec, ok := i.ByID[util.NormalizeIdentifier(id)]
	return rec, ok
}

func (i *Index) Size() int { return len(i.ByID) }
