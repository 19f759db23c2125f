// Package auth implements sign-up and sign-in against the local store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials covers both unknown users and wrong passwords
	// so sign-in failures do not reveal which one happened.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrUserExists = errors.New("an account with this email already exists")
)

const minPasswordLength = 8

// demoBudgetCents seeds every expense category with a starter budget on
// sign-up, matching the demo data new users see.
const demoBudgetCents = 10000

type Service struct {
	store *storage.Store
}

func NewService(store *storage.Store) *Service {
	return &Service{store: store}
}

// SignUp creates the user, a default profile and starter budgets. The
// password is stored as a bcrypt hash only.
func (s *Service) SignUp(ctx context.Context, email, password string) (core.User, error) {
	u := core.User{Email: email}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if len(password) < minPasswordLength {
		return core.User{}, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)

	if err := s.store.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return core.User{}, ErrUserExists
		}
		return core.User{}, fmt.Errorf("sign up: %w", err)
	}

	profile := core.Profile{
		UserID:   u.ID,
		Currency: core.DefaultCurrency,
		Language: core.DefaultLanguage,
	}
	if err := s.store.PutProfile(ctx, &profile); err != nil {
		// The account exists; a missing profile is recreated lazily on the
		// next settings write.
		slog.WarnContext(ctx, "Failed to create initial profile", "user_id", u.ID, "error", err)
	}

	s.seedDemoBudgets(ctx, u.ID)

	slog.InfoContext(ctx, "User signed up", "user_id", u.ID)
	return u, nil
}

// seedDemoBudgets gives every built-in expense category a starter budget.
// Failures are logged and skipped; demo data is not worth failing sign-up.
func (s *Service) seedDemoBudgets(ctx context.Context, userID string) {
	existing, err := s.store.BudgetsByUser(ctx, userID)
	if err != nil || len(existing) > 0 {
		return
	}
	for _, entry := range core.Catalog {
		if entry.Type != core.Expense {
			continue
		}
		b := core.Budget{
			UserID:   userID,
			Category: entry.ID,
			Amount:   core.Money{Cents: demoBudgetCents},
		}
		if err := s.store.PutBudget(ctx, &b); err != nil {
			slog.WarnContext(ctx, "Failed to seed demo budget", "category", entry.ID, "error", err)
		}
	}
}

// SignIn verifies credentials and returns the user.
func (s *Service) SignIn(ctx context.Context, email, password string) (core.User, error) {
	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.User{}, ErrInvalidCredentials
		}
		return core.User{}, fmt.Errorf("sign in: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return core.User{}, ErrInvalidCredentials
	}

	slog.InfoContext(ctx, "User signed in", "user_id", u.ID)
	return u, nil
}
