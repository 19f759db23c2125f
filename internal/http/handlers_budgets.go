package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"budgetbuddy/internal/core"
)

type budgetRequest struct {
	Category string      `json:"category"`
	Amount   json.Number `json:"amount"`
}

type budgetResponse struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amountCents"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:          b.ID,
		Category:    b.Category,
		Amount:      b.Amount.String(),
		AmountCents: b.Amount.Cents,
	}
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSession(w)
	if !ok {
		return
	}

	budgets, err := s.store.BudgetsByUser(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List budgets failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load budgets")
		return
	}

	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	respond(w, http.StatusOK, out)
}

// handlePutBudget creates or overwrites the single budget for (user,
// category).
func (s *Server) handlePutBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSession(w)
	if !ok {
		return
	}

	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := core.ParseMoney(req.Amount.String())
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	b := core.Budget{
		UserID:   userID,
		Category: req.Category,
		Amount:   amount,
	}
	if err := b.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.PutBudget(r.Context(), &b); err != nil {
		slog.ErrorContext(r.Context(), "Put budget failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save budget")
		return
	}
	respond(w, http.StatusOK, toBudgetResponse(b))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSession(w)
	if !ok {
		return
	}

	id := r.PathValue("id")
	budgets, err := s.store.BudgetsByUser(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List budgets failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load budgets")
		return
	}
	owned := false
	for _, b := range budgets {
		if b.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		respondError(w, http.StatusNotFound, "budget not found")
		return
	}

	if err := s.store.DeleteBudget(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Delete budget failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete budget")
		return
	}
	respond(w, http.StatusOK, map[string]bool{"deleted": true})
}
