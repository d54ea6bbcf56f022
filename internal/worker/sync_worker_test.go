package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWriter records appended rows and can be told to fail.
type fakeWriter struct {
	rows []core.Transaction
	err  error
}

func (f *fakeWriter) Append(_ context.Context, t core.Transaction) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.rows = append(f.rows, t)
	return "Transactions!A2:F2", nil
}

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedTransaction(t *testing.T, repo *storage.SQLiteRepository) core.Transaction {
	t.Helper()
	ctx := context.Background()
	u, err := repo.CreateUser(ctx, core.User{
		FirstName: "Sync", LastName: "Tester", Email: "sync@example.com",
		Phone: "1234567890", Position: "Engineer", PasswordHash: "hash",
	})
	require.NoError(t, err)
	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		Title: "Salary", Amount: core.Money{Cents: 300000},
		Date: core.NewDate(2025, 3, 1), Type: core.Income, UserID: u.ID,
	})
	require.NoError(t, err)
	return tx
}

func TestHandleSyncMessageAppendsAndMarksSynced(t *testing.T) {
	repo := newTestRepo(t)
	tx := seedTransaction(t, repo)
	writer := &fakeWriter{}
	w := NewSyncWorker(repo, writer, 10)
	ctx := context.Background()

	err := w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage(tx.ID))
	require.NoError(t, err)
	require.Len(t, writer.rows, 1)
	assert.Equal(t, "Salary", writer.rows[0].Title)

	pending, err := repo.ListPendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "synced row must leave the pending queue")
}

func TestHandleSyncMessageSkipsVanishedRow(t *testing.T) {
	repo := newTestRepo(t)
	writer := &fakeWriter{}
	w := NewSyncWorker(repo, writer, 10)

	err := w.HandleSyncMessage(context.Background(), amqp.NewTransactionSyncMessage(999))
	assert.NoError(t, err, "a vanished row is not an error, the delete message covers it")
	assert.Empty(t, writer.rows)
}

func TestHandleSyncMessageMarksErrorOnWriterFailure(t *testing.T) {
	repo := newTestRepo(t)
	tx := seedTransaction(t, repo)
	writer := &fakeWriter{err: errors.New("quota exceeded")}
	w := NewSyncWorker(repo, writer, 10)
	ctx := context.Background()

	err := w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage(tx.ID))
	assert.Error(t, err)

	pending, err := repo.ListPendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "failed row moves to error state, not pending")
}

func TestHandleDeleteMessageAppendsAuditRow(t *testing.T) {
	repo := newTestRepo(t)
	writer := &fakeWriter{}
	w := NewSyncWorker(repo, writer, 10)

	msg := amqp.NewTransactionDeleteMessage(core.Transaction{
		ID: 7, Title: "Rent", Amount: core.Money{Cents: 90000},
		Date: core.NewDate(2025, 3, 1), Type: core.Expense, Category: "Housing",
	})
	err := w.HandleDeleteMessage(context.Background(), msg)
	require.NoError(t, err)
	require.Len(t, writer.rows, 1)
	assert.Equal(t, "[deleted] Rent", writer.rows[0].Title)
	assert.EqualValues(t, 90000, writer.rows[0].Amount.Cents)
}

func TestProcessPendingSyncsBacklog(t *testing.T) {
	repo := newTestRepo(t)
	tx := seedTransaction(t, repo)
	writer := &fakeWriter{}
	w := NewSyncWorker(repo, writer, 10)
	ctx := context.Background()

	require.NoError(t, w.ProcessPending(ctx))
	require.Len(t, writer.rows, 1)
	assert.Equal(t, tx.ID, writer.rows[0].ID)

	// Second pass finds nothing left.
	require.NoError(t, w.ProcessPending(ctx))
	assert.Len(t, writer.rows, 1)
}
