// Package worker mirrors ledger rows into the external spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// SyncWorker copies transactions from SQLite to the spreadsheet. Sync
// messages name an id and the worker re-reads the row, so the sheet always
// receives the latest state; delete messages carry a snapshot because the
// local row is already gone.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	writer    sheets.LedgerWriter
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, writer sheets.LedgerWriter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes one sync message from the queue.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID)

	t, err := w.storage.GetTransaction(ctx, msg.ID)
	if err != nil {
		// The row may have been deleted between publish and consume; the
		// delete message covers the audit trail, nothing left to sync.
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Transaction gone before sync, skipping", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	return w.syncToSheet(ctx, t)
}

// HandleDeleteMessage appends an audit row for a removed transaction.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.TransactionDeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	date, err := core.ParseDate(msg.Date)
	if err != nil {
		date = core.Date{}
	}
	audit := core.Transaction{
		ID:       msg.ID,
		Title:    "[deleted] " + msg.Title,
		Amount:   core.Money{Cents: msg.AmountCents},
		Date:     date,
		Type:     core.TransactionType(msg.Type),
		Category: msg.Category,
	}

	ref, err := w.writer.Append(ctx, audit)
	if err != nil {
		return fmt.Errorf("append deletion audit row: %w", err)
	}

	slog.InfoContext(ctx, "Recorded deletion in spreadsheet", "id", msg.ID, "sheet_ref", ref)
	return nil
}

// ProcessPending syncs transactions the queue missed, up to the configured
// batch size. It is the periodic backup path for lost messages or worker
// downtime.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.ListPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		t, err := w.storage.GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load pending transaction", "id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}

		if err := w.syncToSheet(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending transaction", "id", p.ID, "error", err)
		}
	}

	return nil
}

func (w *SyncWorker) syncToSheet(ctx context.Context, t core.Transaction) error {
	ref, err := w.writer.Append(ctx, t)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, t.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", t.ID, "error", markErr)
		}
		return fmt.Errorf("append to spreadsheet: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, t.ID); err != nil {
		// The row landed on the sheet; only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", t.ID, "error", err)
	}

	slog.InfoContext(ctx, "Synced transaction to spreadsheet",
		"id", t.ID,
		"sheet_ref", ref,
		"amount_cents", t.Amount.Cents)
	return nil
}
