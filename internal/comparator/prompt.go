package comparator

import (
	"encoding/json"
	"strings"

	"pdfcheck/internal"
	"pdfcheck/internal/util"
)

const systemPrompt = `You are a data verification assistant. Your ONLY job is to find ACTUAL DATA ERRORS between a patient document and a master data row.

STRICT RULES:

1. IGNORE these situations (DO NOT REPORT):
   - Fields not found in the document
   - Date format differences (2024-12-01 00:00:00 = 1-Dec-2024 = 12/01/2024)
   - Text format differences (BCBS = EXCEL BCBS = Finance Class BCBS)
   - Case differences (JOHN = John = john)
   - Extra spaces or punctuation
   - Different field labels

2. ONLY REPORT these situations:
   - Completely different names (John Smith vs Jane Doe)
   - Different insurance companies (BCBS vs Aetna)
   - Different calendar dates (Jan 1 vs Dec 31)
   - Different amounts ($100 vs $200)

Be very strict: only genuine data errors, never formatting or missing-field issues.

Return ONLY JSON matching the provided JSON Schema. If no actual data errors exist, return {"discrepancies": []}. For each real error add an entry with "field" (the master column name), "master_value", "document_value" and a one-sentence "explanation". No markdown fences, no commentary.`

func buildUserPrompt(docText string, record internal.MasterRecord, maxChars int) string {
	row, _ := json.MarshalIndent(record.Fields, "", "  ")

	var b strings.Builder
	b.WriteString("Document text:\n```\n")
	b.WriteString(util.Truncate(docText, maxChars))
	b.WriteString("\n```\n\nMaster data row:\n```json\n")
	b.Write(row)
	b.WriteString("\n```")
	return b.String()
}
