// Package export renders transaction listings to the CSV download format.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"fintrack/internal/core"
)

// CSVHeader is the first line of every export.
const CSVHeader = "ID,Date,Type,Category,Title,Amount"

// EncodeCSV renders the given transactions, one line each, after a fixed
// header. Fields are positional: integer id, ISO-8601 date, type name,
// category (empty when absent), the title quoted with embedded quotes
// doubled, and the amount with exactly two fraction digits.
//
// The title is the only field that may contain free text, and it is always
// quoted, so encoding/csv with its quote-when-needed policy would not
// reproduce the format. The function is pure: it neither filters nor
// re-sorts its input.
func EncodeCSV(transactions []core.Transaction) []byte {
	var buf bytes.Buffer
	buf.WriteString(CSVHeader)
	buf.WriteByte('\n')

	for _, t := range transactions {
		fmt.Fprintf(&buf, "%d,%s,%s,%s,\"%s\",%s\n",
			t.ID,
			t.Date.String(),
			string(t.Type),
			t.Category,
			strings.ReplaceAll(t.Title, `"`, `""`),
			t.Amount.Decimal(),
		)
	}

	return buf.Bytes()
}
