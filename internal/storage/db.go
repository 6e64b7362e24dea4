package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"pdfcheck/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  masterFile TEXT NOT NULL,
  total INTEGER NOT NULL,
  clean INTEGER NOT NULL,
  discrepant INTEGER NOT NULL,
  unmatched INTEGER NOT NULL,
  errored INTEGER NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS outcomes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId INTEGER NOT NULL,
  position INTEGER NOT NULL,
  fileName TEXT NOT NULL,
  patientId TEXT,
  status TEXT NOT NULL,
  errorKind TEXT,
  errorDetail TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(runId) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_outcomes_runId ON outcomes(runId);

CREATE TABLE IF NOT EXISTS discrepancies (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  outcomeId INTEGER NOT NULL,
  field TEXT NOT NULL,
  masterValue TEXT,
  documentValue TEXT,
  explanation TEXT,
  FOREIGN KEY(outcomeId) REFERENCES outcomes(id)
);
CREATE INDEX IF NOT EXISTS idx_discrepancies_outcomeId ON discrepancies(outcomeId);
`

	_, err := d.conn.Exec(schema)
	return err
}

// InsertRun persists a finished batch run with its outcomes and any
// discrepancy entries, and returns the new run ID.
func (d *DB) InsertRun(traceID, masterFile string, summary internal.BatchSummary, outcomes []internal.Outcome) (int64, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
INSERT INTO runs (traceId, masterFile, total, clean, discrepant, unmatched, errored)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		traceID, masterFile, summary.Total, summary.Clean, summary.Discrepant, summary.Unmatched, summary.Errored)
	if err != nil {
		return 0, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	outcomeStmt, err := tx.Prepare(`
INSERT INTO outcomes (runId, position, fileName, patientId, status, errorKind, errorDetail)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer outcomeStmt.Close()

	discStmt, err := tx.Prepare(`
INSERT INTO discrepancies (outcomeId, field, masterValue, documentValue, explanation)
VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer discStmt.Close()

	for i, o := range outcomes {
		res, err := outcomeStmt.Exec(runID, i, o.FileName, o.PatientID, string(o.Status), string(o.ErrorKind), o.ErrorDetail)
		if err != nil {
			return 0, err
		}
		outcomeID, err := res.LastInsertId()
		if err != nil {
			return 0, err
		}
		for _, disc := range o.Discrepancies {
			if _, err := discStmt.Exec(outcomeID, disc.Field, disc.MasterValue, disc.DocumentValue, disc.Explanation); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.Query(`
SELECT id, traceId, masterFile, total, clean, discrepant, unmatched, errored, createdAt
FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []internal.RunRow{}
	for rows.Next() {
		var r internal.RunRow
		if err := rows.Scan(&r.ID, &r.TraceID, &r.MasterFile, &r.Total, &r.Clean, &r.Discrepant, &r.Unmatched, &r.Errored, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetReportRows rebuilds the flat export rows for a stored run, in the
// original input order.
func (d *DB) GetReportRows(runID int64) ([]internal.ReportRow, error) {
	rows, err := d.conn.Query(`
SELECT id, fileName, patientId, status, errorDetail
FROM outcomes WHERE runId = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type outcomeRow struct {
		id          int64
		fileName    string
		patientID   string
		status      string
		errorDetail string
	}

	outcomes := []outcomeRow{}
	for rows.Next() {
		var o outcomeRow
		var patientID, errorDetail sql.NullString
		if err := rows.Scan(&o.id, &o.fileName, &patientID, &o.status, &errorDetail); err != nil {
			return nil, err
		}
		o.patientID = patientID.String
		o.errorDetail = errorDetail.String
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(outcomes) == 0 {
		return nil, fmt.Errorf("no outcomes for run %d", runID)
	}

	discsByOutcome := map[int64][]internal.Discrepancy{}
	discRows, err := d.conn.Query(`
SELECT d.outcomeId, d.field, d.masterValue, d.documentValue, d.explanation
FROM discrepancies d
JOIN outcomes o ON o.id = d.outcomeId
WHERE o.runId = ? ORDER BY d.id`, runID)
	if err != nil {
		return nil, err
	}
	defer discRows.Close()
	for discRows.Next() {
		var outcomeID int64
		var disc internal.Discrepancy
		var masterValue, documentValue, explanation sql.NullString
		if err := discRows.Scan(&outcomeID, &disc.Field, &masterValue, &documentValue, &explanation); err != nil {
			return nil, err
		}
		disc.MasterValue = masterValue.String
		disc.DocumentValue = documentValue.String
		disc.Explanation = explanation.String
		discsByOutcome[outcomeID] = append(discsByOutcome[outcomeID], disc)
	}
	if err := discRows.Err(); err != nil {
		return nil, err
	}

	report := make([]internal.ReportRow, 0, len(outcomes))
	for _, o := range outcomes {
		discs := discsByOutcome[o.id]
		if len(discs) == 0 {
			report = append(report, internal.ReportRow{
				FileName:  o.fileName,
				PatientID: o.patientID,
				Status:    o.status,
				Detail:    o.errorDetail,
			})
			continue
		}
		for _, disc := range discs {
			report = append(report, internal.ReportRow{
				FileName:      o.fileName,
				PatientID:     o.patientID,
				Status:        o.status,
				Field:         disc.Field,
				MasterValue:   disc.MasterValue,
				DocumentValue: disc.DocumentValue,
				Detail:        disc.Explanation,
			})
		}
	}
	return report, nil
}
