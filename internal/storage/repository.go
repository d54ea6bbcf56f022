// Package storage persists users and transactions in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the identity store and the ledger store in one place.
// Every transaction read or write that acts on behalf of a user is scoped to
// that user in the WHERE clause, never by post-filtering in application code.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// runs the embedded migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// isUniqueEmailViolation detects the users.email unique constraint error
// raised by the sqlite driver.
func isUniqueEmailViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: users.email")
}

// CreateUser inserts a new user and returns it with the assigned id.
// A duplicate email surfaces as core.ErrEmailTaken.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, email, phone, position, address, password_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.FirstName, u.LastName, u.Email, u.Phone, u.Position, u.Address, u.PasswordHash,
	)
	if err != nil {
		if isUniqueEmailViolation(err) {
			return core.User{}, core.ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}
	u.ID = id

	slog.InfoContext(ctx, "User created", "id", u.ID, "email", u.Email)
	return u, nil
}

// UpdateUser overwrites every mutable field of an existing user, including
// the password hash. Moving to an email another record holds fails with
// core.ErrEmailTaken.
func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET first_name = ?, last_name = ?, email = ?, phone = ?, position = ?, address = ?, password_hash = ?
		 WHERE id = ?`,
		u.FirstName, u.LastName, u.Email, u.Phone, u.Position, u.Address, u.PasswordHash, u.ID,
	)
	if err != nil {
		if isUniqueEmailViolation(err) {
			return core.User{}, core.ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.User{}, fmt.Errorf("update user rows: %w", err)
	}
	if n == 0 {
		return core.User{}, core.ErrUserNotFound
	}
	return u, nil
}

func (r *SQLiteRepository) scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.Position, &u.Address, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// FindUserByEmail looks a user up by exact email.
func (r *SQLiteRepository) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, phone, position, address, password_hash
		 FROM users WHERE email = ?`, email)
	return r.scanUser(row)
}

// FindUserByID looks a user up by id.
func (r *SQLiteRepository) FindUserByID(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, phone, position, address, password_hash
		 FROM users WHERE id = ?`, id)
	return r.scanUser(row)
}

// CountUsers returns the number of user records.
func (r *SQLiteRepository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// dateParam converts a core.Date to its column value: NULL when absent.
func dateParam(d core.Date) any {
	if d.IsEmpty() {
		return nil
	}
	return d.String()
}

func scanDate(ns sql.NullString) (core.Date, error) {
	if !ns.Valid || ns.String == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(ns.String)
}

// CreateTransaction inserts a transaction and returns it with the assigned id.
// The owner is taken from t.UserID and is immutable afterwards.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (title, amount_cents, date, type, category, user_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.Title, t.Amount.Cents, dateParam(t.Date), string(t.Type), t.Category, t.UserID,
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction insert id: %w", err)
	}
	t.ID = id

	slog.InfoContext(ctx, "Transaction created",
		"id", t.ID,
		"user_id", t.UserID,
		"type", string(t.Type),
		"amount_cents", t.Amount.Cents)
	return t, nil
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		var (
			t    core.Transaction
			typ  string
			date sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Amount.Cents, &date, &typ, &t.Category, &t.UserID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		d, err := scanDate(date)
		if err != nil {
			return nil, fmt.Errorf("parse transaction date: %w", err)
		}
		t.Date = d
		t.Type = core.TransactionType(typ)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTransactionsByUser returns every transaction owned by userID, newest
// date first. Rows sharing a date come back in ascending id order, which the
// in-memory filter preserves (stable sort).
func (r *SQLiteRepository) ListTransactionsByUser(ctx context.Context, userID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, amount_cents, date, type, category, user_id
		 FROM transactions WHERE user_id = ?
		 ORDER BY date DESC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// GetTransactionForUser fetches one transaction scoped to its owner. A miss
// is core.ErrNotFound whether the id does not exist or belongs to someone
// else.
func (r *SQLiteRepository) GetTransactionForUser(ctx context.Context, id, userID int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, amount_cents, date, type, category, user_id
		 FROM transactions WHERE id = ? AND user_id = ?`, id, userID)

	var (
		t    core.Transaction
		typ  string
		date sql.NullString
	)
	err := row.Scan(&t.ID, &t.Title, &t.Amount.Cents, &date, &typ, &t.Category, &t.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	d, err := scanDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date: %w", err)
	}
	t.Date = d
	t.Type = core.TransactionType(typ)
	return t, nil
}

// UpdateTransactionForUser overwrites the mutable fields of a transaction the
// user owns. The owner column is deliberately absent from the SET list.
// Updated rows go back to pending so the sync worker picks them up again.
func (r *SQLiteRepository) UpdateTransactionForUser(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET title = ?, amount_cents = ?, date = ?, type = ?, category = ?, sync_status = 'pending', synced_at = NULL
		 WHERE id = ? AND user_id = ?`,
		t.Title, t.Amount.Cents, dateParam(t.Date), string(t.Type), t.Category, t.ID, t.UserID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteTransactionForUser removes a transaction the user owns.
func (r *SQLiteRepository) DeleteTransactionForUser(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id, "user_id", userID)
	return nil
}

// SumCentsByUserAndType totals the amounts of one user's transactions of the
// given type. An empty ledger sums to zero.
func (r *SQLiteRepository) SumCentsByUserAndType(ctx context.Context, userID int64, typ core.TransactionType) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE user_id = ? AND type = ?`,
		userID, string(typ)).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return sum, nil
}

// PendingTransaction is the minimal row the sync worker needs to queue work.
type PendingTransaction struct {
	ID        int64
	CreatedAt time.Time
}

// GetTransaction fetches a transaction by id without owner scoping. Only the
// sync worker uses this; the HTTP surface always goes through the scoped
// lookups.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, amount_cents, date, type, category, user_id
		 FROM transactions WHERE id = ?`, id)

	var (
		t    core.Transaction
		typ  string
		date sql.NullString
	)
	err := row.Scan(&t.ID, &t.Title, &t.Amount.Cents, &date, &typ, &t.Category, &t.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	d, err := scanDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date: %w", err)
	}
	t.Date = d
	t.Type = core.TransactionType(typ)
	return t, nil
}

// ListPendingSync returns transactions not yet mirrored to the spreadsheet,
// oldest first, up to limit.
func (r *SQLiteRepository) ListPendingSync(ctx context.Context, limit int) ([]PendingTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at FROM transactions
		 WHERE sync_status = 'pending'
		 ORDER BY created_at ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync: %w", err)
	}
	defer rows.Close()

	var out []PendingTransaction
	for rows.Next() {
		var p PendingTransaction
		if err := rows.Scan(&p.ID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced records a successful spreadsheet sync.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced', synced_at = CURRENT_TIMESTAMP WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncError records a failed spreadsheet sync so the periodic scan can
// retry it.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}
