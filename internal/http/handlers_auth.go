package http

import (
	"errors"
	"log/slog"
	"net/http"

	"budgetbuddy/internal/auth"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := s.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.session.Begin(r.Context(), u.ID)
	respond(w, http.StatusCreated, map[string]string{
		"id":    u.ID,
		"email": u.Email,
	})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Sign in failed", "error", err)
		respondError(w, http.StatusInternalServerError, "sign in failed")
		return
	}

	s.session.Begin(r.Context(), u.ID)
	respond(w, http.StatusOK, map[string]string{
		"id":       u.ID,
		"email":    u.Email,
		"currency": s.session.Currency(),
		"language": s.session.Language(),
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, _ *http.Request) {
	s.session.End()
	respond(w, http.StatusOK, map[string]bool{"signedOut": true})
}
