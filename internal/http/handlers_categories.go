package http

import (
	"log/slog"
	"net/http"

	"budgetbuddy/internal/core"
)

type categoryRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

type categoryResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Color   string `json:"color,omitempty"`
	Icon    string `json:"icon,omitempty"`
	BuiltIn bool   `json:"builtIn"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:      c.ID,
		Name:    c.Name,
		Type:    string(c.Type),
		Color:   c.Color,
		Icon:    c.Icon,
		BuiltIn: c.UserID == "",
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSession(w)
	if !ok {
		return
	}

	cats, err := s.store.CategoriesForUser(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List categories failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load categories")
		return
	}

	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryResponse(c))
	}
	respond(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSession(w)
	if !ok {
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	typ := core.TransactionType(req.Type)
	if req.Type == "" {
		typ = core.Expense
	}
	c := core.Category{
		UserID: userID,
		Name:   req.Name,
		Type:   typ,
		Color:  req.Color,
		Icon:   req.Icon,
	}
	if err := c.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.AddCategory(r.Context(), &c); err != nil {
		slog.ErrorContext(r.Context(), "Create category failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save category")
		return
	}
	respond(w, http.StatusCreated, toCategoryResponse(c))
}

// ownedCategory resolves the path id to one of the user's own categories.
// Built-in catalog entries are visible but never mutable.
func (s *Server) ownedCategory(w http.ResponseWriter, r *http.Request, userID string) (core.Category, bool) {
	id := r.PathValue("id")
	cats, err := s.store.CategoriesForUser(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List categories failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load categories")
		return core.Category{}, false
	}
	for _, c := range cats {
		if c.ID != id {
			continue
		}
		if c.UserID == "" {
			respondError(w, http.StatusForbidden, "built-in categories cannot be modified")
			return core.Category{}, false
		}
		return c, true
	}
	respondError(w, http.StatusNotFound, "category not found")
	return core.Category{}, false
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSession(w)
	if !ok {
		return
	}
	c, ok := s.ownedCategory(w, r, userID)
	if !ok {
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusUnprocessableEntity, core.ErrEmptyCategoryName.Error())
		return
	}

	if err := s.store.UpdateCategory(r.Context(), c.ID, req.Name, req.Color); err != nil {
		slog.ErrorContext(r.Context(), "Update category failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to update category")
		return
	}

	c.Name = req.Name
	c.Color = req.Color
	respond(w, http.StatusOK, toCategoryResponse(c))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSession(w)
	if !ok {
		return
	}
	c, ok := s.ownedCategory(w, r, userID)
	if !ok {
		return
	}

	if err := s.store.DeleteCategory(r.Context(), c.ID); err != nil {
		slog.ErrorContext(r.Context(), "Delete category failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete category")
		return
	}
	respond(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSession(w)
	if !ok {
		return
	}

	accounts, err := s.store.AccountsByUser(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List accounts failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load accounts")
		return
	}

	type accountResponse struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Institution  string `json:"institution,omitempty"`
		LastFour     string `json:"lastFour,omitempty"`
		Balance      string `json:"balance"`
		BalanceCents int64  `json:"balanceCents"`
		Connected    bool   `json:"connected"`
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountResponse{
			ID:           a.ID,
			Name:         a.Name,
			Institution:  a.Institution,
			LastFour:     a.LastFour,
			Balance:      core.Money{Cents: a.BalanceCents}.String(),
			BalanceCents: a.BalanceCents,
			Connected:    a.Connected,
		})
	}
	respond(w, http.StatusOK, out)
}
