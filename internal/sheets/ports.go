// Package sheets defines the port the sync worker writes through.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// LedgerWriter appends ledger rows to an external spreadsheet. The returned
// reference identifies the appended row for logging.
type LedgerWriter interface {
	Append(ctx context.Context, t core.Transaction) (string, error)
}
