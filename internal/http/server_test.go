package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"fintrack/internal/services"
	"fintrack/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "http_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	const bcryptCost = 4
	auth := services.NewAuthService(repo, bcryptCost)
	users := services.NewUserService(repo, bcryptCost)
	ledger := services.NewLedgerService(repo, nil)

	s := NewServer(":0", auth, users, ledger, []string{"*"})
	t.Cleanup(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
	})
	return s
}

func doRequest(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("X-Auth-Token", token)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

func registerAndLogin(t *testing.T, s *Server, email string) (token string, userID int64) {
	t.Helper()
	rec := doRequest(t, s, http.MethodPost, "/api/auth/register", "", map[string]string{
		"firstName": "Ada", "lastName": "Lovelace", "email": email,
		"phone": "5551234567", "position": "Engineer", "address": "12 Analytical Row",
		"password": "secret123", "confirmPassword": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token  *string `json:"token"`
		UserID *int64  `json:"userId"`
	}
	decodeBody(t, rec, &resp)
	require.NotNil(t, resp.Token)
	require.NotNil(t, resp.UserID)
	return *resp.Token, *resp.UserID
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/auth/register", "", map[string]string{
		"firstName": "", "lastName": "Lovelace", "email": "not-an-email",
		"phone": "123", "position": "Engineer",
		"password": "abc", "confirmPassword": "",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errs map[string]string
	decodeBody(t, rec, &errs)
	assert.Equal(t, "First name is required", errs["firstName"])
	assert.Equal(t, "Invalid email format", errs["email"])
	assert.Equal(t, "Phone number must be 10 digits", errs["phone"])
	assert.Equal(t, "Password must be at least 6 characters long", errs["password"])
	assert.Equal(t, "Confirm password is required", errs["confirmPassword"])
	assert.NotContains(t, errs, "lastName")
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "ada@example.com")

	rec := doRequest(t, s, http.MethodPost, "/api/auth/register", "", map[string]string{
		"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com",
		"phone": "5551234567", "position": "Engineer",
		"password": "secret123", "confirmPassword": "secret123",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errs map[string]string
	decodeBody(t, rec, &errs)
	assert.Equal(t, "user with this email already exists", errs["error"])
}

func TestLoginSetsAuthTokenHeader(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "ada@example.com")

	rec := doRequest(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("X-Auth-Token"), "ada@example.com|"))
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "ada@example.com")

	rec := doRequest(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "nope123",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errs map[string]string
	decodeBody(t, rec, &errs)
	assert.Equal(t, "invalid password", errs["error"])
}

func TestForgotPasswordFlow(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "ada@example.com")

	rec := doRequest(t, s, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{
		"email": "ada@example.com", "newPassword": "fresh456", "confirmPassword": "fresh456",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "fresh456",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVerify(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/auth/verify", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/auth/verify", "anything|123", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTransactionsRequireAuth(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/transactions", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/transactions", "ghost@example.com|99", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var errs map[string]string
	decodeBody(t, rec, &errs)
	assert.Equal(t, "user not authenticated", errs["error"])
}

func TestCreateTransaction(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAndLogin(t, s, "ada@example.com")

	rec := doRequest(t, s, http.MethodPost, "/api/transactions", token, map[string]any{
		"title": "Salary", "amount": 3000.50, "date": "2025-03-01",
		"type": "income", "category": "Work",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp transactionResponse
	decodeBody(t, rec, &resp)
	assert.NotZero(t, resp.ID)
	assert.Equal(t, "Salary", resp.Title)
	assert.Equal(t, "INCOME", resp.Type)
	assert.InDelta(t, 3000.50, resp.Amount, 0.001)
	require.NotNil(t, resp.Date)
	assert.Equal(t, "2025-03-01", *resp.Date)
	assert.Equal(t, "/api/transactions/"+itoa(resp.ID), rec.Header().Get("Location"))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestCreateTransactionValidation(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAndLogin(t, s, "ada@example.com")

	rec := doRequest(t, s, http.MethodPost, "/api/transactions", token, map[string]any{
		"title": "", "amount": -5, "date": "2099-01-01", "type": "TRANSFER",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errs map[string]string
	decodeBody(t, rec, &errs)
	assert.Equal(t, "Title is required", errs["title"])
	assert.Equal(t, "Amount must be positive", errs["amount"])
	assert.Equal(t, "Date cannot be in the future", errs["date"])
	assert.Equal(t, "Transaction type is required", errs["type"])
}

func TestCreateTransactionAmountCents(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAndLogin(t, s, "ada@example.com")

	// The decimal text goes through the cents parser: the third decimal
	// rounds half-up and the stored value is exact cents.
	rec := doRequest(t, s, http.MethodPost, "/api/transactions", token, map[string]any{
		"title": "Refund", "amount": 12.345, "date": "2025-03-01", "type": "INCOME",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp transactionResponse
	decodeBody(t, rec, &resp)
	assert.InDelta(t, 12.35, resp.Amount, 0.0001)

	for _, amount := range []any{0, -0.01} {
		rec := doRequest(t, s, http.MethodPost, "/api/transactions", token, map[string]any{
			"title": "Bogus", "amount": amount, "type": "EXPENSE",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var errs map[string]string
		decodeBody(t, rec, &errs)
		assert.Equal(t, "Amount must be positive", errs["amount"])
	}
}

func TestListTransactionsWithFilters(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAndLogin(t, s, "ada@example.com")

	seed := []map[string]any{
		{"title": "Salary", "amount": 3000.0, "date": "2025-01-15", "type": "INCOME"},
		{"title": "Groceries", "amount": 42.50, "date": "2025-01-20", "type": "EXPENSE", "category": "Food"},
		{"title": "Rent", "amount": 900.0, "date": "2025-02-01", "type": "EXPENSE", "category": "Housing"},
	}
	for _, tx := range seed {
		rec := doRequest(t, s, http.MethodPost, "/api/transactions", token, tx)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := doRequest(t, s, http.MethodGet, "/api/transactions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []transactionResponse
	decodeBody(t, rec, &all)
	require.Len(t, all, 3)
	assert.Equal(t, "Rent", all[0].Title, "newest date first")

	rec = doRequest(t, s, http.MethodGet, "/api/transactions?type=expense&category=food", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var filtered []transactionResponse
	decodeBody(t, rec, &filtered)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Groceries", filtered[0].Title)

	rec = doRequest(t, s, http.MethodGet, "/api/transactions?startDate=2025-01-16&endDate=2025-02-01", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	filtered = nil
	decodeBody(t, rec, &filtered)
	require.Len(t, filtered, 2)

	rec = doRequest(t, s, http.MethodGet, "/api/transactions?startDate=garbage", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummaryReflectsMutations(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAndLogin(t, s, "ada@example.com")

	rec := doRequest(t, s, http.MethodGet, "/api/transactions/summary", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sum summaryResponse
	decodeBody(t, rec, &sum)
	assert.Zero(t, sum.Balance)

	rec = doRequest(t, s, http.MethodPost, "/api/transactions", token, map[string]any{
		"title": "Salary", "amount": 3000.0, "type": "INCOME",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(t, s, http.MethodPost, "/api/transactions", token, map[string]any{
		"title": "Rent", "amount": 900.0, "type": "EXPENSE",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// The cached zero summary must have been invalidated by the creates.
	rec = doRequest(t, s, http.MethodGet, "/api/transactions/summary", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &sum)
	assert.InDelta(t, 3000.0, sum.TotalIncome, 0.001)
	assert.InDelta(t, 900.0, sum.TotalExpense, 0.001)
	assert.InDelta(t, 2100.0, sum.Balance, 0.001)
}

func TestUpdateTransaction(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAndLogin(t, s, "ada@example.com")

	rec := doRequest(t, s, http.MethodPost, "/api/transactions", token, map[string]any{
		"title": "Salary", "amount": 3000.0, "date": "2025-01-15", "type": "INCOME",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created transactionResponse
	decodeBody(t, rec, &created)

	rec = doRequest(t, s, http.MethodPut, "/api/transactions/"+itoa(created.ID), token, map[string]any{
		"title": "Salary (adjusted)", "amount": 3100.0, "date": "2025-01-15", "type": "INCOME",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated transactionResponse
	decodeBody(t, rec, &updated)
	assert.Equal(t, "Salary (adjusted)", updated.Title)
	assert.InDelta(t, 3100.0, updated.Amount, 0.001)
}

func TestMutatingForeignTransactionIsRejected(t *testing.T) {
	s := newTestServer(t)
	aliceToken, _ := registerAndLogin(t, s, "alice@example.com")
	bobToken, _ := registerAndLogin(t, s, "bob@example.com")

	rec := doRequest(t, s, http.MethodPost, "/api/transactions", aliceToken, map[string]any{
		"title": "Salary", "amount": 3000.0, "type": "INCOME",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created transactionResponse
	decodeBody(t, rec, &created)

	rec = doRequest(t, s, http.MethodPut, "/api/transactions/"+itoa(created.ID), bobToken, map[string]any{
		"title": "Hijack", "amount": 1.0, "type": "EXPENSE",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var errs map[string]string
	decodeBody(t, rec, &errs)
	assert.Equal(t, "transaction not found or not owned by current user", errs["error"])

	rec = doRequest(t, s, http.MethodDelete, "/api/transactions/"+itoa(created.ID), bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteTransaction(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAndLogin(t, s, "ada@example.com")

	rec := doRequest(t, s, http.MethodPost, "/api/transactions", token, map[string]any{
		"title": "Salary", "amount": 3000.0, "type": "INCOME",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created transactionResponse
	decodeBody(t, rec, &created)

	rec = doRequest(t, s, http.MethodDelete, "/api/transactions/"+itoa(created.ID), token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = doRequest(t, s, http.MethodGet, "/api/transactions", token, nil)
	var all []transactionResponse
	decodeBody(t, rec, &all)
	assert.Empty(t, all)
}

func TestExportTransactionsCSV(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerAndLogin(t, s, "ada@example.com")

	rec := doRequest(t, s, http.MethodPost, "/api/transactions", token, map[string]any{
		"title": "Coffee \"to go\"", "amount": 12.50, "date": "2025-03-01", "type": "EXPENSE",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created transactionResponse
	decodeBody(t, rec, &created)

	rec = doRequest(t, s, http.MethodGet, "/api/transactions/export", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "transactions.csv")

	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID,Date,Type,Category,Title,Amount", lines[0])
	assert.Equal(t, itoa(created.ID)+`,2025-03-01,EXPENSE,,"Coffee ""to go""",12.50`, lines[1])
}

func TestGetUserMasksPassword(t *testing.T) {
	s := newTestServer(t)
	token, userID := registerAndLogin(t, s, "ada@example.com")

	rec := doRequest(t, s, http.MethodGet, "/api/users/"+itoa(userID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	decodeBody(t, rec, &raw)
	assert.Equal(t, "ada@example.com", raw["email"])
	val, present := raw["password"]
	assert.True(t, present, "password key must be present")
	assert.Nil(t, val, "password must be serialized as null")
}

func TestUpdateUserProfile(t *testing.T) {
	s := newTestServer(t)
	token, userID := registerAndLogin(t, s, "ada@example.com")

	rec := doRequest(t, s, http.MethodPut, "/api/users/"+itoa(userID), token, map[string]string{
		"firstName": "Ada", "lastName": "King", "email": "ada@example.com",
		"phone": "5559876543", "position": "Countess", "address": "Ockham Park",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp userResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "King", resp.LastName)
	assert.Equal(t, "5559876543", resp.Phone)
	assert.Nil(t, resp.Password)

	// Credentials unchanged when no password was supplied.
	rec = doRequest(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
