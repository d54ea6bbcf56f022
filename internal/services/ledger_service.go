package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// LedgerService orchestrates transaction operations across SQLite and AMQP.
// Every operation takes the authenticated user explicitly; there is no
// ambient identity, and a nil user is ErrUnauthenticated.
type LedgerService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewLedgerService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// Create persists a new transaction owned by user. A missing date defaults
// to today. The spreadsheet sync message is published best-effort; the row
// is already saved locally, so a publish failure never fails the request.
func (s *LedgerService) Create(ctx context.Context, user *core.User, t core.Transaction) (core.Transaction, error) {
	if user == nil {
		return core.Transaction{}, core.ErrUnauthenticated
	}

	if t.Date.IsEmpty() {
		t.Date = core.Today()
	}
	t.UserID = user.ID

	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.storage.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publishSync(ctx, created.ID)
	return created, nil
}

// List returns the caller's transactions with the filter applied: dateless
// rows excluded, matches AND-composed, newest date first.
func (s *LedgerService) List(ctx context.Context, user *core.User, f core.Filter) ([]core.Transaction, error) {
	if user == nil {
		return nil, core.ErrUnauthenticated
	}

	ts, err := s.storage.ListTransactionsByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return f.Apply(ts), nil
}

// Get loads one transaction, scoped to the caller.
func (s *LedgerService) Get(ctx context.Context, user *core.User, id int64) (core.Transaction, error) {
	if user == nil {
		return core.Transaction{}, core.ErrUnauthenticated
	}
	return s.storage.GetTransactionForUser(ctx, id, user.ID)
}

// Summary totals the caller's ledger. An empty ledger is all zeros.
func (s *LedgerService) Summary(ctx context.Context, user *core.User) (core.Summary, error) {
	if user == nil {
		return core.Summary{}, core.ErrUnauthenticated
	}

	income, err := s.storage.SumCentsByUserAndType(ctx, user.ID, core.Income)
	if err != nil {
		return core.Summary{}, fmt.Errorf("sum income: %w", err)
	}
	expense, err := s.storage.SumCentsByUserAndType(ctx, user.ID, core.Expense)
	if err != nil {
		return core.Summary{}, fmt.Errorf("sum expense: %w", err)
	}

	return core.NewSummary(core.Money{Cents: income}, core.Money{Cents: expense}), nil
}

// Update overwrites the mutable fields of the caller's transaction with the
// given id. The owner never changes; a missing date defaults to today, like
// Create. A miss or a foreign row both surface as ErrNotFound.
func (s *LedgerService) Update(ctx context.Context, user *core.User, id int64, t core.Transaction) (core.Transaction, error) {
	if user == nil {
		return core.Transaction{}, core.ErrUnauthenticated
	}

	existing, err := s.storage.GetTransactionForUser(ctx, id, user.ID)
	if err != nil {
		return core.Transaction{}, err
	}

	existing.Title = t.Title
	existing.Amount = t.Amount
	existing.Type = t.Type
	existing.Category = t.Category
	existing.Date = t.Date
	if existing.Date.IsEmpty() {
		existing.Date = core.Today()
	}

	if err := existing.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.storage.UpdateTransactionForUser(ctx, existing); err != nil {
		return core.Transaction{}, err
	}

	s.publishSync(ctx, existing.ID)
	return existing, nil
}

// Delete removes the caller's transaction with the given id and publishes a
// snapshot so the spreadsheet keeps an audit row for it.
func (s *LedgerService) Delete(ctx context.Context, user *core.User, id int64) error {
	if user == nil {
		return core.ErrUnauthenticated
	}

	existing, err := s.storage.GetTransactionForUser(ctx, id, user.ID)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteTransactionForUser(ctx, id, user.ID); err != nil {
		return err
	}

	s.publishDelete(ctx, existing)
	return nil
}

func (s *LedgerService) publishSync(ctx context.Context, id int64) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishTransactionSync(ctx, id); err != nil {
		// The row is saved locally; the periodic pending scan will catch it.
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
	}
}

func (s *LedgerService) publishDelete(ctx context.Context, t core.Transaction) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishTransactionDelete(ctx, amqp.NewTransactionDeleteMessage(t)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", t.ID, "error", err)
	}
}

// Close releases the storage and AMQP handles owned by the service.
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}
