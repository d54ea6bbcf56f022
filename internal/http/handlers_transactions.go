package http

import (
	"fmt"
	"net/http"
	"strconv"

	"fintrack/internal/core"
	"fintrack/internal/export"
	applog "fintrack/internal/log"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, user *core.User) {
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := req.validate(); errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	created, err := s.ledger.Create(r.Context(), user, req.toTransaction())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummary(user.ID)

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created",
		applog.FieldTransactionID, created.ID,
		applog.FieldUserID, user.ID,
		applog.FieldAmountCents, created.Amount.Cents,
		applog.FieldType, string(created.Type))

	w.Header().Set("Location", "/api/transactions/"+strconv.FormatInt(created.ID, 10))
	writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, user *core.User) {
	filter, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ts, err := s.ledger.List(r.Context(), user, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(ts))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, user *core.User) {
	key := s.summaryCacheKey(user.ID)
	if cached, ok := s.summaryCache.Get(key); ok {
		writeJSON(w, http.StatusOK, toSummaryResponse(cached))
		return
	}

	summary, err := s.ledger.Summary(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.summaryCache.Set(key, summary)
	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request, user *core.User) {
	filter, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ts, err := s.ledger.List(r.Context(), user, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	csv := export.EncodeCSV(ts)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(csv)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(csv)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := req.validate(); errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	updated, err := s.ledger.Update(r.Context(), user, id, req.toTransaction())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummary(user.ID)

	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := s.ledger.Delete(r.Context(), user, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummary(user.ID)

	w.WriteHeader(http.StatusNoContent)
}
