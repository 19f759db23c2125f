package core

import (
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		UserID:      "u1",
		Amount:      Money{Cents: 100},
		Description: "coffee",
		Category:    "food",
		Type:        Expense,
		Date:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"no user", func(x *Transaction) { x.UserID = "" }},
		{"negative amount", func(x *Transaction) { x.Amount.Cents = -1 }},
		{"empty description", func(x *Transaction) { x.Description = " " }},
		{"empty category", func(x *Transaction) { x.Category = "" }},
		{"bad type", func(x *Transaction) { x.Type = "transfer" }},
		{"zero date", func(x *Transaction) { x.Date = time.Time{} }},
	}
	for _, tc := range bads {
		t.Run(tc.name, func(t *testing.T) {
			bad := good
			tc.mutate(&bad)
			if err := bad.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestTransactionZeroAmountAllowed(t *testing.T) {
	// Amount >= 0 invariant: zero is legal, sign lives on Type.
	zero := Transaction{
		UserID:      "u1",
		Description: "adjustment",
		Category:    "other",
		Type:        Expense,
		Date:        time.Now(),
	}
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero-amount transaction rejected: %v", err)
	}
}

func TestBudgetValidate(t *testing.T) {
	good := Budget{UserID: "u1", Category: "food", Amount: Money{Cents: 60000}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Budget{UserID: "u1", Category: "food"}).Validate(); err == nil {
		t.Fatal("zero budget amount should be rejected")
	}
	if err := (Budget{Category: "food", Amount: Money{Cents: 1}}).Validate(); err == nil {
		t.Fatal("missing user should be rejected")
	}
}

func TestProfileValidate(t *testing.T) {
	good := Profile{UserID: "u1", Currency: "USD", Language: "en"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Profile{UserID: "u1", Currency: "XXX", Language: "en"}).Validate(); err != ErrInvalidCurrency {
		t.Fatal("unsupported currency should be rejected")
	}
	if err := (Profile{UserID: "u1", Currency: "USD", Language: "xx"}).Validate(); err != ErrInvalidLanguage {
		t.Fatal("unsupported language should be rejected")
	}
}

func TestUserValidate(t *testing.T) {
	if err := (User{Email: "a@b.com"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (User{Email: ""}).Validate(); err == nil {
		t.Fatal("empty email should be rejected")
	}
	if err := (User{Email: "nope"}).Validate(); err == nil {
		t.Fatal("malformed email should be rejected")
	}
}

func TestInferCategory(t *testing.T) {
	cases := []struct {
		desc string
		want string
	}{
		{"Coffee at the corner cafe", "food"},
		{"Uber to airport", "transportation"},
		{"Monthly rent", "housing"},
		{"Payroll deposit", "income"},
		{"Grocry run", "food"}, // typo, fuzzy match
		{"completely unrelated thing", "other"},
		{"", "other"},
	}
	for _, tc := range cases {
		if got := InferCategory(tc.desc); got != tc.want {
			t.Fatalf("InferCategory(%q) = %q, want %q", tc.desc, got, tc.want)
		}
	}
}

func TestInferCategoryFuzzyTieIsStable(t *testing.T) {
	// "gases" sits at distance 2 from both "gas" (transportation) and
	// "game" (entertainment); catalog order must break the tie the same
	// way every run.
	for i := 0; i < 50; i++ {
		if got := InferCategory("gases"); got != "transportation" {
			t.Fatalf("run %d: InferCategory(%q) = %q, want %q", i, "gases", got, "transportation")
		}
	}
}

func TestCatalogEntryByID(t *testing.T) {
	e, ok := CatalogEntryByID("food")
	if !ok || e.Name != "Food & Dining" || e.Type != Expense {
		t.Fatalf("unexpected catalog entry %+v ok=%v", e, ok)
	}
	if _, ok := CatalogEntryByID("nonexistent"); ok {
		t.Fatal("unknown id should not resolve")
	}
}
