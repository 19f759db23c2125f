package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/storage"
)

const dateLayout = "2006-01-02"

type transactionRequest struct {
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Type        string      `json:"type"`
	Date        string      `json:"date"`
}

type transactionResponse struct {
	ID          string `json:"id"`
	AccountID   string `json:"accountId,omitempty"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amountCents"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	Date        string `json:"date"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Amount:      t.Amount.String(),
		AmountCents: t.Amount.Cents,
		Description: t.Description,
		Category:    t.Category,
		Type:        string(t.Type),
		Date:        t.Date.Format(dateLayout),
	}
}

// parseTransaction turns the request into a validated transaction for
// userID. An empty category is inferred from the description; an empty
// date means today.
func parseTransaction(req transactionRequest, userID string) (core.Transaction, error) {
	amount, err := core.ParseMoney(req.Amount.String())
	if err != nil {
		return core.Transaction{}, err
	}

	date := time.Now().UTC()
	if req.Date != "" {
		date, err = time.Parse(dateLayout, req.Date)
		if err != nil {
			date, err = time.Parse(time.RFC3339, req.Date)
			if err != nil {
				return core.Transaction{}, core.ErrInvalidDate
			}
		}
	}

	typ := core.TransactionType(req.Type)
	if req.Type == "" {
		typ = core.Expense
	}

	category := req.Category
	if category == "" {
		category = core.InferCategory(req.Description)
	}

	t := core.Transaction{
		UserID:      userID,
		Amount:      amount,
		Description: req.Description,
		Category:    category,
		Type:        typ,
		Date:        date,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSession(w)
	if !ok {
		return
	}

	var (
		txs []core.Transaction
		err error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		txs, err = s.store.TransactionsByUserAndCategory(r.Context(), userID, category)
	} else {
		txs, err = s.store.TransactionsByUser(r.Context(), userID)
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "List transactions failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	respond(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSession(w)
	if !ok {
		return
	}

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := parseTransaction(req, userID)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.AddTransaction(r.Context(), &t); err != nil {
		slog.ErrorContext(r.Context(), "Create transaction failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save transaction")
		return
	}
	respond(w, http.StatusCreated, toTransactionResponse(t))
}

// ownedTransaction loads the transaction and hides other users' rows
// behind the same 404 as missing ones.
func (s *Server) ownedTransaction(w http.ResponseWriter, r *http.Request, userID string) (core.Transaction, bool) {
	t, err := s.store.TransactionByID(r.Context(), r.PathValue("id"))
	if err != nil || t.UserID != userID {
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			slog.ErrorContext(r.Context(), "Load transaction failed", "error", err)
		}
		respondError(w, http.StatusNotFound, "transaction not found")
		return core.Transaction{}, false
	}
	return t, true
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSession(w)
	if !ok {
		return
	}
	t, ok := s.ownedTransaction(w, r, userID)
	if !ok {
		return
	}
	respond(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSession(w)
	if !ok {
		return
	}
	t, ok := s.ownedTransaction(w, r, userID)
	if !ok {
		return
	}

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := parseTransaction(req, userID)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	fields := storage.TransactionUpdate{
		Amount:      updated.Amount,
		Description: updated.Description,
		Category:    updated.Category,
		Type:        updated.Type,
		Date:        updated.Date,
	}
	if err := s.store.UpdateTransaction(r.Context(), t.ID, fields); err != nil {
		slog.ErrorContext(r.Context(), "Update transaction failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to update transaction")
		return
	}

	t, err = s.store.TransactionByID(r.Context(), t.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to reload transaction")
		return
	}
	respond(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSession(w)
	if !ok {
		return
	}
	t, ok := s.ownedTransaction(w, r, userID)
	if !ok {
		return
	}

	if err := s.store.DeleteTransaction(r.Context(), t.ID); err != nil {
		slog.ErrorContext(r.Context(), "Delete transaction failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}
	respond(w, http.StatusOK, map[string]bool{"deleted": true})
}
