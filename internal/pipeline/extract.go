package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// ErrUnreadable marks a document whose byte stream could not be decoded as a
// PDF. It is recorded against that one document and never aborts the batch.
var ErrUnreadable = errors.New("document unreadable")

var patientIDPattern = regexp.MustCompile(`(?i)(?:Patient\s*ID|ID)\s*[:\-]?\s*(\d+)`)

// ExtractText decodes a PDF byte stream into the concatenated plain text of
// all pages in document order. Pages that fail to decode individually are
// skipped; only an unreadable document as a whole is an error.
func ExtractText(content []byte) (text string, err error) {
	// The pdf reader panics on some malformed streams; fold those into
	// ErrUnreadable so one bad document cannot take down the batch.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(pageText)
	}
	return b.String(), nil
}

// FindPatientID returns the first digit run following a "Patient ID" or "ID"
// marker, case-insensitive, with an optional ":" or "-" separator. Absence
// is a normal outcome, not an error.
func FindPatientID(text string) (string, bool) {
	m := patientIDPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
