// Package sample generates the starter transactions a freshly linked
// payment method receives in place of a real bank import.
package sample

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/storage"
)

// samples is the fixed set recorded for every newly linked account.
// Categories are inferred from the descriptions, never hardcoded, so the
// inference path gets exercised on every link.
var samples = []struct {
	description string
	cents       int64
	daysAgo     int
}{
	{"Grocery store purchase", 5423, 2},
	{"Monthly rent payment", 95000, 5},
	{"Electric utility bill", 8950, 8},
	{"Restaurant dinner", 3675, 11},
	{"Gas station fill-up", 4200, 14},
}

type Generator struct {
	store *storage.Store
}

func NewGenerator(store *storage.Store) *Generator {
	return &Generator{store: store}
}

// OnPaymentLinked records the sample transactions against the account and
// deducts their total from its balance. A second delivery for the same
// account is a no-op, so redelivered queue messages stay safe.
func (g *Generator) OnPaymentLinked(ctx context.Context, accountID, userID string) error {
	account, err := g.store.AccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account %s: %w", accountID, err)
	}
	if userID == "" {
		userID = account.UserID
	}
	if account.UserID != userID {
		return fmt.Errorf("account %s does not belong to user %s", accountID, userID)
	}

	seeded, err := g.alreadySeeded(ctx, userID, accountID)
	if err != nil {
		return err
	}
	if seeded {
		slog.InfoContext(ctx, "Account already has sample transactions, skipping", "account_id", accountID)
		return nil
	}

	now := time.Now().UTC()
	var total int64
	for _, s := range samples {
		tx := core.Transaction{
			UserID:      userID,
			AccountID:   accountID,
			Amount:      core.Money{Cents: s.cents},
			Description: s.description,
			Category:    core.InferCategory(s.description),
			Type:        core.Expense,
			Date:        now.AddDate(0, 0, -s.daysAgo),
		}
		if err := g.store.AddTransaction(ctx, &tx); err != nil {
			return fmt.Errorf("record sample transaction: %w", err)
		}
		total += s.cents
	}

	if err := g.store.AdjustAccountBalance(ctx, accountID, -total); err != nil {
		return fmt.Errorf("adjust account balance: %w", err)
	}

	slog.InfoContext(ctx, "Generated sample transactions",
		"account_id", accountID,
		"count", len(samples),
		"total_cents", total)
	return nil
}

func (g *Generator) alreadySeeded(ctx context.Context, userID, accountID string) (bool, error) {
	txs, err := g.store.TransactionsByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("check existing transactions: %w", err)
	}
	for _, t := range txs {
		if t.AccountID == accountID {
			return true, nil
		}
	}
	return false, nil
}
