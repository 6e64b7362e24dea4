package internal

type OutcomeStatus string

const (
	StatusClean         OutcomeStatus = "CLEAN"
	StatusDiscrepancy   OutcomeStatus = "DISCREPANCY"
	StatusNoIdentifier  OutcomeStatus = "NO_IDENTIFIER"
	StatusNoMasterMatch OutcomeStatus = "NO_MASTER_MATCH"
	StatusUnreadable    OutcomeStatus = "UNREADABLE"
	StatusCompareError  OutcomeStatus = "COMPARE_ERROR"
)

type ErrorKind string

// The zero ErrorKind means the outcome carries no error.
const (
	ErrKindUnreadable ErrorKind = "DOCUMENT_UNREADABLE"
	ErrKindService    ErrorKind = "COMPARATOR_SERVICE"
	ErrKindMalformed  ErrorKind = "COMPARATOR_MALFORMED"
)

// MasterRecord is one row of the master spreadsheet. Fields holds every
// column of the row keyed by its header, including the identifier column.
type MasterRecord struct {
	PatientID string
	RowNumber int
	Fields    map[string]string
}

type MasterTable struct {
	SourceFile string
	IDColumn   string
	Columns    []string
	Records    []MasterRecord
}

type Discrepancy struct {
	Field         string `json:"field"`
	MasterValue   string `json:"master_value"`
	DocumentValue string `json:"document_value"`
	Explanation   string `json:"explanation,omitempty"`
}

// Verdict is the comparator's parsed answer. An empty Discrepancies slice
// means the document agrees with the master row.
type Verdict struct {
	Discrepancies []Discrepancy `json:"discrepancies"`
}

type Outcome struct {
	FileName      string
	PatientID     string
	Status        OutcomeStatus
	Discrepancies []Discrepancy
	ErrorKind     ErrorKind
	ErrorDetail   string
}

type BatchSummary struct {
	Total      int
	Clean      int
	Discrepant int
	Unmatched  int
	Errored    int
}

// ReportRow is one flat export row: one per discrepancy for discrepant
// documents, one per document otherwise.
type ReportRow struct {
	FileName      string
	PatientID     string
	Status        string
	Field         string
	MasterValue   string
	DocumentValue string
	Detail        string
}

type RunRow struct {
	ID         int64
	TraceID    string
	MasterFile string
	Total      int
	Clean      int
	Discrepant int
	Unmatched  int
	Errored    int
	CreatedAt  string
}
