package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

type (
	// TransactionType distinguishes money coming in from money going out.
	TransactionType string

	// Date is a calendar date without a time component. The zero value means
	// "no date": a transaction can be persisted without one, in which case it
	// is excluded from every filtered listing.
	Date struct {
		time.Time
	}

	// Money is an amount in cents. All arithmetic happens on cents so that
	// summaries stay exact.
	Money struct {
		Cents int64
	}

	// User is an account identity. PasswordHash never leaves the backend.
	User struct {
		ID           int64
		FirstName    string
		LastName     string
		Email        string
		Phone        string
		Position     string
		Address      string
		PasswordHash string
	}

	// Transaction is a single financial event owned by exactly one user.
	// UserID is assigned at creation time and never reassigned.
	Transaction struct {
		ID       int64
		Title    string
		Amount   Money
		Date     Date
		Type     TransactionType
		Category string
		UserID   int64
	}
)

var (
	ErrUnauthenticated    = errors.New("user not authenticated")
	ErrNotFound           = errors.New("transaction not found or not owned by current user")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid password")
	ErrPasswordMismatch   = errors.New("passwords do not match")

	ErrEmptyTitle    = errors.New("title is required")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrFutureDate    = errors.New("date cannot be in the future")
	ErrInvalidType   = errors.New("invalid transaction type")
)

// ParseTransactionType parses a type name case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(Income):
		return Income, nil
	case string(Expense):
		return Expense, nil
	default:
		return "", ErrInvalidType
	}
}

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// NewDate builds a Date from year, month and day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses an ISO-8601 date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// IsEmpty reports whether the date is absent.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String renders the date in ISO-8601 form, or "" when absent.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// After reports whether d falls strictly after other, comparing dates only.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// Equal reports whether the two dates are the same calendar day.
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

// Validate checks the invariants a transaction must hold before persisting:
// non-empty title, positive amount, known type and no future date.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if t.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Date.IsEmpty() && t.Date.After(Today()) {
		return ErrFutureDate
	}
	return nil
}

// FullName joins the user's first and last names for display.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
