package session

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestUser(t *testing.T, store *storage.Store) core.User {
	t.Helper()
	u := core.User{Email: "ada@example.com", PasswordHash: "x"}
	if err := store.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestBeginDefaults(t *testing.T) {
	store := newTestStore(t)
	u := newTestUser(t, store)
	m := NewManager(store)

	m.Begin(context.Background(), u.ID)

	if got, err := m.UserID(); err != nil || got != u.ID {
		t.Fatalf("UserID() = %q, %v", got, err)
	}
	if m.Currency() != core.DefaultCurrency {
		t.Fatalf("currency = %s, want %s", m.Currency(), core.DefaultCurrency)
	}
	if m.Language() != core.DefaultLanguage {
		t.Fatalf("language = %s, want %s", m.Language(), core.DefaultLanguage)
	}
}

func TestSetCurrencyWritesThrough(t *testing.T) {
	store := newTestStore(t)
	u := newTestUser(t, store)
	ctx := context.Background()

	m := NewManager(store)
	m.Begin(ctx, u.ID)

	if err := m.SetCurrency(ctx, "EUR"); err != nil {
		t.Fatalf("set currency: %v", err)
	}
	if m.Currency() != "EUR" {
		t.Fatalf("currency = %s, want EUR", m.Currency())
	}

	// Lazily-created profile carries the new value.
	p, err := store.ProfileByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Currency != "EUR" {
		t.Fatalf("profile currency = %s, want EUR", p.Currency)
	}

	// A fresh manager restores the preference from the profile.
	m2 := NewManager(store)
	m2.Begin(ctx, u.ID)
	if m2.Currency() != "EUR" {
		t.Fatalf("restored currency = %s, want EUR", m2.Currency())
	}
}

func TestBeginFallsBackToSettings(t *testing.T) {
	store := newTestStore(t)
	u := newTestUser(t, store)
	ctx := context.Background()

	// No profile exists; only the last-used settings.
	if err := store.PutSetting(ctx, "last_currency", "GBP"); err != nil {
		t.Fatalf("put setting: %v", err)
	}
	if err := store.PutSetting(ctx, "last_language", "fr"); err != nil {
		t.Fatalf("put setting: %v", err)
	}

	m := NewManager(store)
	m.Begin(ctx, u.ID)
	if m.Currency() != "GBP" {
		t.Fatalf("currency = %s, want GBP", m.Currency())
	}
	if m.Language() != "fr" {
		t.Fatalf("language = %s, want fr", m.Language())
	}
}

func TestSetCurrencyRejectsUnsupported(t *testing.T) {
	store := newTestStore(t)
	u := newTestUser(t, store)
	ctx := context.Background()

	m := NewManager(store)
	m.Begin(ctx, u.ID)

	if err := m.SetCurrency(ctx, "XXX"); !errors.Is(err, core.ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
	if err := m.SetLanguage(ctx, "xx"); !errors.Is(err, core.ErrInvalidLanguage) {
		t.Fatalf("expected ErrInvalidLanguage, got %v", err)
	}
}

func TestEndClearsSession(t *testing.T) {
	store := newTestStore(t)
	u := newTestUser(t, store)

	m := NewManager(store)
	m.Begin(context.Background(), u.ID)
	m.End()

	if _, err := m.UserID(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if m.Currency() != core.DefaultCurrency {
		t.Fatalf("currency after End = %s, want default", m.Currency())
	}
}

func TestFormatCurrency(t *testing.T) {
	got := FormatCurrency(1234, "USD", "en")
	if !strings.Contains(got, "12.34") {
		t.Fatalf("FormatCurrency(1234, USD, en) = %q, want amount 12.34", got)
	}
	if !strings.Contains(got, "$") {
		t.Fatalf("FormatCurrency(1234, USD, en) = %q, want a dollar symbol", got)
	}

	// Unknown code degrades to a plain rendering instead of failing.
	if got := FormatCurrency(500, "ZZZ", "en"); got != "ZZZ 5.00" {
		t.Fatalf("fallback rendering = %q", got)
	}
}
