package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/storage"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireSession(w); !ok {
		return
	}

	fullName := ""
	if p, err := s.session.Profile(r.Context()); err == nil {
		fullName = p.FullName
	} else if !errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(r.Context(), "Failed to load profile", "error", err)
	}

	respond(w, http.StatusOK, map[string]any{
		"currency":            s.session.Currency(),
		"language":            s.session.Language(),
		"fullName":            fullName,
		"supportedCurrencies": core.SupportedCurrencies,
		"supportedLanguages":  core.SupportedLanguages,
	})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireSession(w); !ok {
		return
	}

	var req struct {
		Currency *string `json:"currency"`
		Language *string `json:"language"`
		FullName *string `json:"fullName"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Currency != nil {
		if err := s.session.SetCurrency(r.Context(), *req.Currency); err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}
	if req.Language != nil {
		if err := s.session.SetLanguage(r.Context(), *req.Language); err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}
	if req.FullName != nil {
		if err := s.session.SetFullName(r.Context(), *req.FullName); err != nil {
			slog.ErrorContext(r.Context(), "Update full name failed", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to update profile")
			return
		}
	}

	respond(w, http.StatusOK, map[string]string{
		"currency": s.session.Currency(),
		"language": s.session.Language(),
	})
}

// handleTranslate serves UI string translation. The text field accepts a
// single string or an array; the response mirrors the input shape.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if !s.translateLimiter.allow(clientIP(r)) {
		slog.WarnContext(r.Context(), "Translate rate limit exceeded", "client_ip", clientIP(r))
		w.Header().Set("Retry-After", "60")
		respondError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
		return
	}

	var req struct {
		Text           json.RawMessage `json:"text"`
		TargetLanguage string          `json:"targetLanguage"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !core.ValidLanguage(req.TargetLanguage) {
		respondError(w, http.StatusUnprocessableEntity, core.ErrInvalidLanguage.Error())
		return
	}

	var single string
	if err := json.Unmarshal(req.Text, &single); err == nil {
		respond(w, http.StatusOK, map[string]string{
			"translatedText": s.translator.Translate(r.Context(), single, req.TargetLanguage),
		})
		return
	}

	var batch []string
	if err := json.Unmarshal(req.Text, &batch); err == nil {
		respond(w, http.StatusOK, map[string][]string{
			"translatedText": s.translator.TranslateBatch(r.Context(), batch, req.TargetLanguage),
		})
		return
	}

	respondError(w, http.StatusBadRequest, "text must be a string or an array of strings")
}
