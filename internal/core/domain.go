package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	// User is the authentication identity record. Users own every other
	// entity through UserID and are never deleted.
	User struct {
		ID           string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	// Profile holds per-user preferences, 1:1 with User. Created lazily on
	// first write.
	Profile struct {
		ID               string
		UserID           string
		FullName         string
		Currency         string
		Language         string
		StripeCustomerID string
		UpdatedAt        time.Time
	}

	Transaction struct {
		ID          string
		UserID      string
		AccountID   string // optional, set for webhook-recorded transactions
		Amount      Money  // always non-negative, sign carried by Type
		Description string
		Category    string
		Type        TransactionType
		Date        time.Time
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// Budget is a per-category monthly spending ceiling. At most one budget
	// exists per (UserID, Category).
	Budget struct {
		ID        string
		UserID    string
		Category  string
		Amount    Money
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Category is a classification tag. Built-in catalog entries have an
	// empty UserID; user-defined categories carry their owner's id.
	Category struct {
		ID        string
		UserID    string
		Name      string
		Type      TransactionType
		Color     string
		Icon      string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Account is a linked payment method with a tracked balance. Balances
	// are adjusted by the webhook receiver and the sample generator.
	Account struct {
		ID                    string
		UserID                string
		Name                  string
		Institution           string
		LastFour              string
		BalanceCents          int64
		Connected             bool
		StripePaymentMethodID string
		CreatedAt             time.Time
		UpdatedAt             time.Time
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyCategory     = errors.New("empty category")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidDate       = errors.New("invalid date")
	ErrEmptyUser         = errors.New("empty user id")
	ErrInvalidCurrency   = errors.New("unsupported currency")
	ErrInvalidLanguage   = errors.New("unsupported language")
	ErrEmptyEmail        = errors.New("empty email")
	ErrEmptyCategoryName = errors.New("empty category name")
)

// SupportedCurrencies is the closed set a profile may select from.
var SupportedCurrencies = []string{"USD", "EUR", "GBP", "JPY", "INR", "NPR", "CNY", "KRW"}

// SupportedLanguages mirrors the translation targets the UI offers.
var SupportedLanguages = []string{"en", "es", "fr", "de", "it", "pt", "ru", "zh", "ja", "ko", "ar", "hi", "bn", "ne"}

const (
	DefaultCurrency = "USD"
	DefaultLanguage = "en"
)

func ValidCurrency(code string) bool {
	for _, c := range SupportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

func ValidLanguage(code string) bool {
	for _, l := range SupportedLanguages {
		if l == code {
			return true
		}
	}
	return false
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUser
	}
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (c Category) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyCategoryName
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return ErrEmptyUser
	}
	if !ValidCurrency(p.Currency) {
		return ErrInvalidCurrency
	}
	if !ValidLanguage(p.Language) {
		return ErrInvalidLanguage
	}
	return nil
}

func (u User) Validate() error {
	if len(strings.TrimSpace(u.Email)) == 0 {
		return ErrEmptyEmail
	}
	if !strings.Contains(u.Email, "@") {
		return errors.New("malformed email")
	}
	return nil
}
