// Package session holds the process-wide preference state for the single
// active session: authenticated user id, selected currency and language.
// Preferences write through to the profile and to the settings fallback
// store, mirroring how the state is rebuilt on the next start.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/storage"
)

const (
	settingLastCurrency = "last_currency"
	settingLastLanguage = "last_language"
)

var ErrNoSession = errors.New("no active session")

type Manager struct {
	mu       sync.RWMutex
	store    *storage.Store
	userID   string
	currency string
	language string
}

func NewManager(store *storage.Store) *Manager {
	return &Manager{
		store:    store,
		currency: core.DefaultCurrency,
		language: core.DefaultLanguage,
	}
}

// Begin starts a session for userID. Preferences come from the profile,
// then from last-used settings, then from hard defaults; a missing or
// unavailable store degrades instead of failing the sign-in.
func (m *Manager) Begin(ctx context.Context, userID string) {
	currency, language := core.DefaultCurrency, core.DefaultLanguage

	if v, err := m.store.Setting(ctx, settingLastCurrency); err == nil && core.ValidCurrency(v) {
		currency = v
	}
	if v, err := m.store.Setting(ctx, settingLastLanguage); err == nil && core.ValidLanguage(v) {
		language = v
	}

	if p, err := m.store.ProfileByUser(ctx, userID); err == nil {
		if core.ValidCurrency(p.Currency) {
			currency = p.Currency
		}
		if core.ValidLanguage(p.Language) {
			language = p.Language
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Session started without profile", "user_id", userID, "error", err)
	}

	m.mu.Lock()
	m.userID = userID
	m.currency = currency
	m.language = language
	m.mu.Unlock()
}

// End tears the session down. Cached translations are deliberately kept;
// only the session fields are cleared.
func (m *Manager) End() {
	m.mu.Lock()
	m.userID = ""
	m.currency = core.DefaultCurrency
	m.language = core.DefaultLanguage
	m.mu.Unlock()
}

// UserID returns the authenticated user id, or ErrNoSession.
func (m *Manager) UserID() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.userID == "" {
		return "", ErrNoSession
	}
	return m.userID, nil
}

func (m *Manager) Currency() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currency
}

func (m *Manager) Language() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.language
}

// SetCurrency validates the code and writes it through to the profile and
// the fallback store.
func (m *Manager) SetCurrency(ctx context.Context, code string) error {
	if !core.ValidCurrency(code) {
		return core.ErrInvalidCurrency
	}
	if err := m.writeThrough(ctx, func(p *core.Profile) { p.Currency = code }); err != nil {
		return err
	}
	if err := m.store.PutSetting(ctx, settingLastCurrency, code); err != nil {
		slog.WarnContext(ctx, "Failed to persist currency fallback", "error", err)
	}

	m.mu.Lock()
	m.currency = code
	m.mu.Unlock()
	return nil
}

// SetLanguage validates the code and writes it through to the profile and
// the fallback store.
func (m *Manager) SetLanguage(ctx context.Context, code string) error {
	if !core.ValidLanguage(code) {
		return core.ErrInvalidLanguage
	}
	if err := m.writeThrough(ctx, func(p *core.Profile) { p.Language = code }); err != nil {
		return err
	}
	if err := m.store.PutSetting(ctx, settingLastLanguage, code); err != nil {
		slog.WarnContext(ctx, "Failed to persist language fallback", "error", err)
	}

	m.mu.Lock()
	m.language = code
	m.mu.Unlock()
	return nil
}

// SetFullName updates the profile's display name.
func (m *Manager) SetFullName(ctx context.Context, name string) error {
	return m.writeThrough(ctx, func(p *core.Profile) { p.FullName = name })
}

// Profile returns the active user's profile, creating nothing.
func (m *Manager) Profile(ctx context.Context) (core.Profile, error) {
	userID, err := m.UserID()
	if err != nil {
		return core.Profile{}, err
	}
	return m.store.ProfileByUser(ctx, userID)
}

// writeThrough loads the profile (creating it lazily with defaults when
// missing), applies the mutation and stores it back.
func (m *Manager) writeThrough(ctx context.Context, mutate func(*core.Profile)) error {
	userID, err := m.UserID()
	if err != nil {
		return err
	}

	p, err := m.store.ProfileByUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		p = core.Profile{
			UserID:   userID,
			Currency: core.DefaultCurrency,
			Language: core.DefaultLanguage,
		}
	} else if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	mutate(&p)
	if err := p.Validate(); err != nil {
		return err
	}
	return m.store.PutProfile(ctx, &p)
}

// FormatCurrency renders cents in the session's currency and locale.
func (m *Manager) FormatCurrency(cents int64) string {
	m.mu.RLock()
	code, lang := m.currency, m.language
	m.mu.RUnlock()
	return FormatCurrency(cents, code, lang)
}
