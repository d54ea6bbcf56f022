package http

import (
	"encoding/json"
	"regexp"
	"strings"

	"fintrack/internal/core"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\d{10}$`)
)

// validationErrors maps field names to human-readable messages, serialized
// as the body of a 400 response.
type validationErrors map[string]string

type registerRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Position        string `json:"position"`
	Address         string `json:"address"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r registerRequest) validate() validationErrors {
	errs := make(validationErrors)
	if strings.TrimSpace(r.FirstName) == "" {
		errs["firstName"] = "First name is required"
	}
	if strings.TrimSpace(r.LastName) == "" {
		errs["lastName"] = "Last name is required"
	}
	if strings.TrimSpace(r.Email) == "" {
		errs["email"] = "Email is required"
	} else if !emailPattern.MatchString(r.Email) {
		errs["email"] = "Invalid email format"
	}
	if strings.TrimSpace(r.Phone) == "" {
		errs["phone"] = "Phone number is required"
	} else if !phonePattern.MatchString(r.Phone) {
		errs["phone"] = "Phone number must be 10 digits"
	}
	if strings.TrimSpace(r.Position) == "" {
		errs["position"] = "Position is required"
	}
	if r.Password == "" {
		errs["password"] = "Password is required"
	} else if len(r.Password) < 6 {
		errs["password"] = "Password must be at least 6 characters long"
	}
	if r.ConfirmPassword == "" {
		errs["confirmPassword"] = "Confirm password is required"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (r registerRequest) toUser() core.User {
	return core.User{
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Email:     strings.TrimSpace(r.Email),
		Phone:     strings.TrimSpace(r.Phone),
		Position:  strings.TrimSpace(r.Position),
		Address:   strings.TrimSpace(r.Address),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) validate() validationErrors {
	errs := make(validationErrors)
	if strings.TrimSpace(r.Email) == "" {
		errs["email"] = "Email is required"
	} else if !emailPattern.MatchString(r.Email) {
		errs["email"] = "Invalid email format"
	}
	if r.Password == "" {
		errs["password"] = "Password is required"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

type resetPasswordRequest struct {
	Email           string `json:"email"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r resetPasswordRequest) validate() validationErrors {
	errs := make(validationErrors)
	if strings.TrimSpace(r.Email) == "" {
		errs["email"] = "Email is required"
	} else if !emailPattern.MatchString(r.Email) {
		errs["email"] = "Invalid email format"
	}
	if r.NewPassword == "" {
		errs["newPassword"] = "New password is required"
	}
	if r.ConfirmPassword == "" {
		errs["confirmPassword"] = "Confirm password is required"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// transactionRequest is the body of both create and update. The amount is
// decoded as json.Number so its decimal text reaches the cents parser
// untouched by float arithmetic; the date is optional and defaults to today
// downstream.
type transactionRequest struct {
	Title    string      `json:"title"`
	Amount   json.Number `json:"amount"`
	Date     string      `json:"date"`
	Type     string      `json:"type"`
	Category string      `json:"category"`
}

func (r transactionRequest) validate() validationErrors {
	errs := make(validationErrors)
	if strings.TrimSpace(r.Title) == "" {
		errs["title"] = "Title is required"
	}
	if r.Amount.String() == "" {
		errs["amount"] = "Amount is required"
	} else if _, err := core.ParseDecimalToCents(r.Amount.String()); err != nil {
		errs["amount"] = "Amount must be positive"
	}
	if strings.TrimSpace(r.Type) == "" {
		errs["type"] = "Transaction type is required"
	} else if _, err := core.ParseTransactionType(r.Type); err != nil {
		errs["type"] = "Transaction type is required"
	}
	if r.Date != "" {
		if d, err := core.ParseDate(r.Date); err != nil {
			errs["date"] = "Invalid date format"
		} else if d.After(core.Today()) {
			errs["date"] = "Date cannot be in the future"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// toTransaction converts a validated request. validate() must have passed.
func (r transactionRequest) toTransaction() core.Transaction {
	typ, _ := core.ParseTransactionType(r.Type)
	var date core.Date
	if r.Date != "" {
		date, _ = core.ParseDate(r.Date)
	}
	cents, _ := core.ParseDecimalToCents(r.Amount.String())
	return core.Transaction{
		Title:    strings.TrimSpace(r.Title),
		Amount:   core.Money{Cents: cents},
		Date:     date,
		Type:     typ,
		Category: strings.TrimSpace(r.Category),
	}
}

type updateUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Position  string `json:"position"`
	Address   string `json:"address"`
	Password  string `json:"password"`
}

func (r updateUserRequest) validate() validationErrors {
	errs := make(validationErrors)
	if strings.TrimSpace(r.FirstName) == "" {
		errs["firstName"] = "First name is required"
	}
	if strings.TrimSpace(r.LastName) == "" {
		errs["lastName"] = "Last name is required"
	}
	if strings.TrimSpace(r.Email) == "" {
		errs["email"] = "Email is required"
	} else if !emailPattern.MatchString(r.Email) {
		errs["email"] = "Invalid email format"
	}
	if strings.TrimSpace(r.Phone) == "" {
		errs["phone"] = "Phone number is required"
	} else if !phonePattern.MatchString(r.Phone) {
		errs["phone"] = "Phone number must be 10 digits"
	}
	if strings.TrimSpace(r.Position) == "" {
		errs["position"] = "Position is required"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// authResponse mirrors the login/register payload. Null fields are kept in
// the JSON so clients can probe them without key checks.
type authResponse struct {
	Message   string  `json:"message"`
	Token     *string `json:"token"`
	UserID    *int64  `json:"userId"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

type transactionResponse struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Amount   float64 `json:"amount"`
	Date     *string `json:"date"`
	Type     string  `json:"type"`
	Category string  `json:"category"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	var date *string
	if !t.Date.IsEmpty() {
		s := t.Date.String()
		date = &s
	}
	return transactionResponse{
		ID:       t.ID,
		Title:    t.Title,
		Amount:   t.Amount.Amount(),
		Date:     date,
		Type:     string(t.Type),
		Category: t.Category,
	}
}

func toTransactionResponses(ts []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

// userResponse is the profile payload. Password is always null; the hash
// never leaves the backend.
type userResponse struct {
	ID        int64   `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Position  string  `json:"position"`
	Address   string  `json:"address"`
	Password  *string `json:"password"`
}

func toUserResponse(u core.User) userResponse {
	return userResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		Position:  u.Position,
		Address:   u.Address,
	}
}

type summaryResponse struct {
	TotalIncome  float64 `json:"totalIncome"`
	TotalExpense float64 `json:"totalExpense"`
	Balance      float64 `json:"balance"`
}

func toSummaryResponse(s core.Summary) summaryResponse {
	return summaryResponse{
		TotalIncome:  s.TotalIncome.Amount(),
		TotalExpense: s.TotalExpense.Amount(),
		Balance:      s.Balance.Amount(),
	}
}
