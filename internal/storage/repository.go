// Package storage persists the domain entities in a local SQLite database.
// Every operation is atomic per single-entity mutation; no cross-entity
// transactions are provided or required.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"budgetbuddy/internal/core"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is the single canonical entity store. A nil *Store behaves as an
// unavailable store: every operation returns ErrUnavailable so callers can
// degrade instead of crashing.
type Store struct {
	db *sql.DB
}

// Open creates the database file if needed, runs migrations and returns a
// ready store.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database connection, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return ErrUnavailable
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE")
}

// --- users ---

// CreateUser assigns id and timestamps and inserts the user. A duplicate
// email yields ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	if err := s.ready(); err != nil {
		return err
	}
	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("create user %s: %w", u.Email, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", u.ID)
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (core.User, error) {
	if err := s.ready(); err != nil {
		return core.User{}, err
	}
	var u core.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at, updated_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user by email: %w", ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("user by email: %w", err)
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (core.User, error) {
	if err := s.ready(); err != nil {
		return core.User{}, err
	}
	var u core.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at, updated_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user by id: %w", ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("user by id: %w", err)
	}
	return u, nil
}

// --- profiles ---

// PutProfile creates or fully overwrites the user's profile (profiles are
// 1:1 with users and created lazily on first write).
func (s *Store) PutProfile(ctx context.Context, p *core.Profile) error {
	if err := s.ready(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, user_id, full_name, currency, language, stripe_customer_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   full_name = excluded.full_name,
		   currency = excluded.currency,
		   language = excluded.language,
		   stripe_customer_id = excluded.stripe_customer_id,
		   updated_at = excluded.updated_at`,
		p.ID, p.UserID, p.FullName, p.Currency, p.Language, p.StripeCustomerID, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

func (s *Store) scanProfile(row *sql.Row, op string) (core.Profile, error) {
	var p core.Profile
	err := row.Scan(&p.ID, &p.UserID, &p.FullName, &p.Currency, &p.Language, &p.StripeCustomerID, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s *Store) ProfileByUser(ctx context.Context, userID string) (core.Profile, error) {
	if err := s.ready(); err != nil {
		return core.Profile{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, full_name, currency, language, stripe_customer_id, updated_at
		 FROM profiles WHERE user_id = ?`, userID)
	return s.scanProfile(row, "profile by user")
}

func (s *Store) ProfileByStripeCustomer(ctx context.Context, customerID string) (core.Profile, error) {
	if err := s.ready(); err != nil {
		return core.Profile{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, full_name, currency, language, stripe_customer_id, updated_at
		 FROM profiles WHERE stripe_customer_id = ?`, customerID)
	return s.scanProfile(row, "profile by stripe customer")
}

// --- transactions ---

const transactionColumns = `id, user_id, account_id, amount_cents, description, category, type, date, created_at, updated_at`

// AddTransaction assigns id and timestamps and inserts the transaction.
func (s *Store) AddTransaction(ctx context.Context, t *core.Transaction) error {
	if err := s.ready(); err != nil {
		return err
	}
	now := time.Now().UTC()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.AccountID, t.Amount.Cents, t.Description, t.Category, string(t.Type), t.Date.UTC(), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("add transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"amount_cents", t.Amount.Cents,
		"category", t.Category,
		"type", string(t.Type))
	return nil
}

// TransactionUpdate is the full set of user-mutable transaction fields.
// Updates overwrite all of them and bump updated_at; identity and
// created_at never change.
type TransactionUpdate struct {
	Amount      core.Money
	Description string
	Category    string
	Type        core.TransactionType
	Date        time.Time
}

func (s *Store) UpdateTransaction(ctx context.Context, id string, fields TransactionUpdate) error {
	if err := s.ready(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET amount_cents = ?, description = ?, category = ?, type = ?, date = ?, updated_at = ?
		 WHERE id = ?`,
		fields.Amount.Cents, fields.Description, fields.Category, string(fields.Type), fields.Date.UTC(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res, "update transaction")
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res, "delete transaction")
}

func (s *Store) TransactionByID(ctx context.Context, id string) (core.Transaction, error) {
	if err := s.ready(); err != nil {
		return core.Transaction{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction by id: %w", ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction by id: %w", err)
	}
	return t, nil
}

func (s *Store) TransactionsByUser(ctx context.Context, userID string) ([]core.Transaction, error) {
	return s.queryTransactions(ctx, "transactions by user",
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? ORDER BY date DESC, created_at DESC`, userID)
}

func (s *Store) TransactionsByUserAndCategory(ctx context.Context, userID, category string) ([]core.Transaction, error) {
	return s.queryTransactions(ctx, "transactions by category",
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND category = ? ORDER BY date DESC`, userID, category)
}

// TransactionsInRange returns the user's transactions with date inside the
// inclusive [start, end] window.
func (s *Store) TransactionsInRange(ctx context.Context, userID string, start, end time.Time) ([]core.Transaction, error) {
	return s.queryTransactions(ctx, "transactions in range",
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date DESC`,
		userID, start.UTC(), end.UTC())
}

func (s *Store) queryTransactions(ctx context.Context, op, query string, args ...any) ([]core.Transaction, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func scanTransaction(scan func(...any) error) (core.Transaction, error) {
	var (
		t   core.Transaction
		typ string
	)
	err := scan(&t.ID, &t.UserID, &t.AccountID, &t.Amount.Cents, &t.Description, &t.Category, &typ, &t.Date, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	return t, nil
}

// --- budgets ---

// PutBudget creates or overwrites the budget for (user, category). The
// UNIQUE index plus this single write path enforce the at-most-one-budget
// invariant on every caller.
func (s *Store) PutBudget(ctx context.Context, b *core.Budget) error {
	if err := s.ready(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if b.ID == "" {
		b.ID = uuid.NewString()
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (id, user_id, category, amount_cents, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, category) DO UPDATE SET
		   amount_cents = excluded.amount_cents,
		   updated_at = excluded.updated_at`,
		b.ID, b.UserID, b.Category, b.Amount.Cents, now, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put budget: %w", err)
	}
	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRow(res, "delete budget")
}

func (s *Store) BudgetsByUser(ctx context.Context, userID string) ([]core.Budget, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, category, amount_cents, created_at, updated_at FROM budgets WHERE user_id = ? ORDER BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("budgets by user: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Category, &b.Amount.Cents, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("budgets by user: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("budgets by user: %w", err)
	}
	return out, nil
}

func (s *Store) BudgetByUserAndCategory(ctx context.Context, userID, category string) (core.Budget, error) {
	if err := s.ready(); err != nil {
		return core.Budget{}, err
	}
	var b core.Budget
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, category, amount_cents, created_at, updated_at FROM budgets WHERE user_id = ? AND category = ?`,
		userID, category).
		Scan(&b.ID, &b.UserID, &b.Category, &b.Amount.Cents, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget by category: %w", ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget by category: %w", err)
	}
	return b, nil
}

// --- categories ---

// AddCategory inserts a user-defined category.
func (s *Store) AddCategory(ctx context.Context, c *core.Category) error {
	if err := s.ready(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, type, color, icon, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, string(c.Type), c.Color, c.Icon, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("add category: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("add category: %w", err)
	}
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, id, name, color string) error {
	if err := s.ready(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, color = ?, updated_at = ? WHERE id = ? AND user_id != ''`,
		name, color, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireRow(res, "update category")
}

// DeleteCategory removes a user-defined category. Built-in catalog rows
// (empty user_id) cannot be deleted.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND user_id != ''`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res, "delete category")
}

// CategoriesForUser returns the built-in catalog plus the user's custom
// categories.
func (s *Store) CategoriesForUser(ctx context.Context, userID string) ([]core.Category, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, color, icon, created_at, updated_at
		 FROM categories WHERE user_id = '' OR user_id = ? ORDER BY user_id, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("categories for user: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c   core.Category
			typ string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.Color, &c.Icon, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("categories for user: %w", err)
		}
		c.Type = core.TransactionType(typ)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("categories for user: %w", err)
	}
	return out, nil
}

// --- accounts ---

const accountColumns = `id, user_id, name, institution, last_four, balance_cents, connected, stripe_payment_method_id, created_at, updated_at`

func (s *Store) AddAccount(ctx context.Context, a *core.Account) error {
	if err := s.ready(); err != nil {
		return err
	}
	now := time.Now().UTC()
	a.ID = uuid.NewString()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.Institution, a.LastFour, a.BalanceCents, a.Connected, a.StripePaymentMethodID, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("add account: %w", err)
	}

	slog.InfoContext(ctx, "Account linked", "account_id", a.ID, "user_id", a.UserID)
	return nil
}

// AdjustAccountBalance applies a signed delta to the stored balance.
func (s *Store) AdjustAccountBalance(ctx context.Context, id string, deltaCents int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents + ?, updated_at = ? WHERE id = ?`,
		deltaCents, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("adjust account balance: %w", err)
	}
	return requireRow(res, "adjust account balance")
}

func (s *Store) SetAccountConnected(ctx context.Context, id string, connected bool) error {
	if err := s.ready(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET connected = ?, updated_at = ? WHERE id = ?`,
		connected, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set account connected: %w", err)
	}
	return requireRow(res, "set account connected")
}

func (s *Store) AccountByID(ctx context.Context, id string) (core.Account, error) {
	if err := s.ready(); err != nil {
		return core.Account{}, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccountRow(row, "account by id")
}

func (s *Store) AccountByStripePaymentMethod(ctx context.Context, userID, pmID string) (core.Account, error) {
	if err := s.ready(); err != nil {
		return core.Account{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? AND stripe_payment_method_id = ?`, userID, pmID)
	return scanAccountRow(row, "account by payment method")
}

func (s *Store) AccountsByUser(ctx context.Context, userID string) ([]core.Account, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("accounts by user: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Institution, &a.LastFour, &a.BalanceCents, &a.Connected, &a.StripePaymentMethodID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("accounts by user: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("accounts by user: %w", err)
	}
	return out, nil
}

func scanAccountRow(row *sql.Row, op string) (core.Account, error) {
	var a core.Account
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Institution, &a.LastFour, &a.BalanceCents, &a.Connected, &a.StripePaymentMethodID, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// --- settings ---

// Setting reads a key from the local fallback store. Missing keys return
// ErrNotFound.
func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("setting %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
