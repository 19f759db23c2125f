package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"budgetbuddy/internal/alert"
	"budgetbuddy/internal/auth"
	"budgetbuddy/internal/sample"
	"budgetbuddy/internal/session"
	"budgetbuddy/internal/storage"
)

// echoTranslator marks texts instead of calling a backend.
type echoTranslator struct{}

func (echoTranslator) Translate(_ context.Context, text, target string) string {
	return target + ":" + text
}

func (echoTranslator) TranslateBatch(_ context.Context, texts []string, target string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = target + ":" + t
	}
	return out
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	sess := session.NewManager(store)
	s := NewServer(":0", Deps{
		Store:               store,
		Auth:                auth.NewService(store),
		Session:             sess,
		Translator:          echoTranslator{},
		Monitor:             alert.NewMonitor(store, sess, time.Hour),
		Sampler:             sample.NewGenerator(store),
		StripeWebhookSecret: "whsec_test",
		TranslateRateLimit:  3,
		TranslateRateWindow: time.Minute,
	})
	t.Cleanup(func() { s.translateLimiter.stop() })
	return s
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func doJSON(t *testing.T, s *Server, method, path string, body any) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	var env testEnvelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope from %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func signUp(t *testing.T, s *Server) {
	t.Helper()
	rec, env := doJSON(t, s, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":    "ada@example.com",
		"password": "correct horse",
	})
	if rec.Code != http.StatusCreated || !env.Success {
		t.Fatalf("sign up: status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestSignUpSignInFlow(t *testing.T) {
	s := newTestServer(t)
	signUp(t, s)

	rec, env := doJSON(t, s, http.MethodPost, "/api/auth/signout", nil)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("sign out: status %d", rec.Code)
	}

	// Signed out: protected routes refuse.
	rec, env = doJSON(t, s, http.MethodGet, "/api/transactions", nil)
	if rec.Code != http.StatusUnauthorized || env.Success {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec, _ = doJSON(t, s, http.MethodPost, "/api/auth/signin", map[string]string{
		"email":    "ada@example.com",
		"password": "correct horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sign in: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec, _ = doJSON(t, s, http.MethodPost, "/api/auth/signin", map[string]string{
		"email":    "ada@example.com",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: status %d", rec.Code)
	}
}

func TestTransactionCRUD(t *testing.T) {
	s := newTestServer(t)
	signUp(t, s)

	rec, env := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"amount":      "54.23",
		"description": "Grocery store purchase",
		"type":        "expense",
		"date":        "2026-08-10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}

	var created transactionResponse
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.AmountCents != 5423 {
		t.Fatalf("amount cents = %d, want 5423", created.AmountCents)
	}
	// Category was inferred from the description.
	if created.Category != "food" {
		t.Fatalf("category = %s, want food", created.Category)
	}

	rec, env = doJSON(t, s, http.MethodGet, "/api/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var list []transactionResponse
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("unexpected list %+v", list)
	}

	rec, env = doJSON(t, s, http.MethodPut, "/api/transactions/"+created.ID, map[string]any{
		"amount":      "60.00",
		"description": "Grocery store purchase",
		"category":    "food",
		"type":        "expense",
		"date":        "2026-08-10",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d, body %s", rec.Code, rec.Body.String())
	}
	var updated transactionResponse
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode updated: %v", err)
	}
	if updated.AmountCents != 6000 {
		t.Fatalf("updated amount = %d, want 6000", updated.AmountCents)
	}

	rec, _ = doJSON(t, s, http.MethodDelete, "/api/transactions/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}
	rec, _ = doJSON(t, s, http.MethodGet, "/api/transactions/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status %d", rec.Code)
	}
}

func TestCreateTransactionRejectsBadAmount(t *testing.T) {
	s := newTestServer(t)
	signUp(t, s)

	for _, amount := range []string{"-5", "0", "abc"} {
		rec, _ := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
			"amount":      amount,
			"description": "whatever",
			"type":        "expense",
		})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("amount %q: status %d, want 422", amount, rec.Code)
		}
	}
}

func TestBudgetUpsertAndReport(t *testing.T) {
	s := newTestServer(t)
	signUp(t, s)

	// Overwrite the seeded food budget with 600.
	rec, _ := doJSON(t, s, http.MethodPut, "/api/budgets", map[string]any{
		"category": "food", "amount": "600.00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("put budget: status %d, body %s", rec.Code, rec.Body.String())
	}

	// A second put for the same category replaces, never duplicates.
	rec, env := doJSON(t, s, http.MethodGet, "/api/budgets", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list budgets: status %d", rec.Code)
	}
	var budgets []budgetResponse
	if err := json.Unmarshal(env.Data, &budgets); err != nil {
		t.Fatalf("decode budgets: %v", err)
	}
	foodCount := 0
	for _, b := range budgets {
		if b.Category == "food" {
			foodCount++
			if b.AmountCents != 60000 {
				t.Fatalf("food budget = %d, want 60000", b.AmountCents)
			}
		}
	}
	if foodCount != 1 {
		t.Fatalf("%d food budgets, want exactly 1", foodCount)
	}

	now := time.Now()
	doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"amount": "450.00", "description": "Grocery run", "category": "food",
		"type": "expense", "date": now.Format("2006-01-02"),
	})

	rec, env = doJSON(t, s, http.MethodGet, "/api/reports/budgets", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("budget report: status %d", rec.Code)
	}
	var statuses []budgetStatusResponse
	if err := json.Unmarshal(env.Data, &statuses); err != nil {
		t.Fatalf("decode statuses: %v", err)
	}
	for _, st := range statuses {
		if st.Category != "food" {
			continue
		}
		if st.Remaining.Cents != 15000 || st.OverBudget {
			t.Fatalf("food status %+v, want 15000 remaining and not over", st)
		}
		return
	}
	t.Fatal("food status missing from report")
}

func TestReportSummary(t *testing.T) {
	s := newTestServer(t)
	signUp(t, s)

	date := time.Now().Format("2006-01-02")
	doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"amount": "3000.00", "description": "Salary deposit", "category": "income",
		"type": "income", "date": date,
	})
	doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"amount": "1200.00", "description": "Monthly rent payment", "category": "housing",
		"type": "expense", "date": date,
	})

	rec, env := doJSON(t, s, http.MethodGet, "/api/reports/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: status %d", rec.Code)
	}
	var summary struct {
		Income      moneyField `json:"income"`
		Expenses    moneyField `json:"expenses"`
		Savings     moneyField `json:"savings"`
		SavingsRate float64    `json:"savingsRate"`
	}
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Income.Cents != 300000 || summary.Expenses.Cents != 120000 {
		t.Fatalf("unexpected totals %+v", summary)
	}
	if summary.Savings.Cents != 180000 {
		t.Fatalf("savings = %d, want 180000", summary.Savings.Cents)
	}
	if summary.SavingsRate != 60 {
		t.Fatalf("savings rate = %v, want 60", summary.SavingsRate)
	}
	if summary.Income.Formatted == "" {
		t.Fatal("income missing formatted rendering")
	}
}

func TestSettingsValidation(t *testing.T) {
	s := newTestServer(t)
	signUp(t, s)

	rec, _ := doJSON(t, s, http.MethodPut, "/api/settings", map[string]string{"currency": "EUR"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set currency: status %d", rec.Code)
	}

	rec, env := doJSON(t, s, http.MethodPut, "/api/settings", map[string]string{"currency": "XXX"})
	if rec.Code != http.StatusUnprocessableEntity || env.Success {
		t.Fatalf("invalid currency: status %d", rec.Code)
	}

	rec, env = doJSON(t, s, http.MethodGet, "/api/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get settings: status %d", rec.Code)
	}
	var settings struct {
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(env.Data, &settings); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if settings.Currency != "EUR" {
		t.Fatalf("currency = %s, want EUR", settings.Currency)
	}
}

func TestTranslateStringAndArray(t *testing.T) {
	s := newTestServer(t)

	rec, env := doJSON(t, s, http.MethodPost, "/api/translate", map[string]any{
		"text": "Hello", "targetLanguage": "es",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("translate: status %d", rec.Code)
	}
	var single struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := json.Unmarshal(env.Data, &single); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if single.TranslatedText != "es:Hello" {
		t.Fatalf("got %q", single.TranslatedText)
	}

	rec, env = doJSON(t, s, http.MethodPost, "/api/translate", map[string]any{
		"text": []string{"One", "Two"}, "targetLanguage": "fr",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("translate array: status %d", rec.Code)
	}
	var batch struct {
		TranslatedText []string `json:"translatedText"`
	}
	if err := json.Unmarshal(env.Data, &batch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(batch.TranslatedText) != 2 || batch.TranslatedText[1] != "fr:Two" {
		t.Fatalf("got %v", batch.TranslatedText)
	}
}

func TestTranslateRateLimit(t *testing.T) {
	s := newTestServer(t) // limit 3 per window

	for i := 0; i < 3; i++ {
		rec, _ := doJSON(t, s, http.MethodPost, "/api/translate", map[string]any{
			"text": "Hello", "targetLanguage": "es",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i+1, rec.Code)
		}
	}

	rec, env := doJSON(t, s, http.MethodPost, "/api/translate", map[string]any{
		"text": "Hello", "targetLanguage": "es",
	})
	if rec.Code != http.StatusTooManyRequests || env.Success {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
}

func TestTranslateRejectsUnsupportedLanguage(t *testing.T) {
	s := newTestServer(t)

	rec, _ := doJSON(t, s, http.MethodPost, "/api/translate", map[string]any{
		"text": "Hello", "targetLanguage": "xx",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec = httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz: status %d", rec.Code)
	}
}
