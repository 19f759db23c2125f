package http

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"budgetbuddy/internal/core"
)

const testWebhookSecret = "whsec_test"

// signedWebhookRequest builds a request carrying a valid Stripe-Signature
// for payload.
func signedWebhookRequest(t *testing.T, payload []byte) *http.Request {
	t.Helper()
	ts := time.Now()
	sig := webhook.ComputeSignature(ts, payload, testWebhookSecret)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig)))
	return req
}

func webhookPayload(t *testing.T, eventType string, object map[string]any) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          "evt_test_1",
		"object":      "event",
		"api_version": stripe.APIVersion,
		"type":        eventType,
		"created":     time.Now().Unix(),
		"data":        map[string]any{"object": object},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return payload
}

// linkStripeCustomer attaches a Stripe customer id to the signed-up
// user's profile so webhook events can be attributed.
func linkStripeCustomer(t *testing.T, s *Server, customerID string) string {
	t.Helper()
	ctx := context.Background()

	userID, err := s.session.UserID()
	if err != nil {
		t.Fatalf("no session: %v", err)
	}
	p, err := s.store.ProfileByUser(ctx, userID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	p.StripeCustomerID = customerID
	if err := s.store.PutProfile(ctx, &p); err != nil {
		t.Fatalf("put profile: %v", err)
	}
	return userID
}

func TestWebhookMissingSecret(t *testing.T) {
	s := newTestServer(t)
	s.stripeWebhookSecret = ""

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", rec.Code)
	}
}

func TestWebhookBadSignature(t *testing.T) {
	s := newTestServer(t)

	payload := webhookPayload(t, "payment_intent.succeeded", map[string]any{"id": "pi_1"})
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestWebhookExternalAccountCreatedGeneratesSamples(t *testing.T) {
	s := newTestServer(t)
	signUp(t, s)
	userID := linkStripeCustomer(t, s, "cus_test_1")

	payload := webhookPayload(t, "account.external_account.created", map[string]any{
		"id":        "ba_test_1",
		"object":    "bank_account",
		"customer":  "cus_test_1",
		"bank_name": "Test Bank",
		"last4":     "6789",
	})
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, signedWebhookRequest(t, payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}

	ctx := context.Background()
	accounts, err := s.store.AccountsByUser(ctx, userID)
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("got %d accounts, want 1", len(accounts))
	}
	a := accounts[0]
	if a.Institution != "Test Bank" || a.LastFour != "6789" || !a.Connected {
		t.Fatalf("unexpected account %+v", a)
	}

	// No queue configured: samples were generated inline and the
	// balance reflects them.
	txs, err := s.store.TransactionsByUser(ctx, userID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	sampled := 0
	var total int64
	for _, tx := range txs {
		if tx.AccountID == a.ID {
			sampled++
			total += tx.Amount.Cents
		}
	}
	if sampled == 0 {
		t.Fatal("no sample transactions generated")
	}
	reloaded, err := s.store.AccountByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if reloaded.BalanceCents != -total {
		t.Fatalf("balance = %d, want %d", reloaded.BalanceCents, -total)
	}
}

func TestWebhookPaymentIntentRecordsExpense(t *testing.T) {
	s := newTestServer(t)
	signUp(t, s)
	userID := linkStripeCustomer(t, s, "cus_test_2")

	payload := webhookPayload(t, "payment_intent.succeeded", map[string]any{
		"id":          "pi_test_1",
		"object":      "payment_intent",
		"amount":      2599,
		"description": "Restaurant dinner",
		"customer":    "cus_test_2",
	})
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, signedWebhookRequest(t, payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}

	txs, err := s.store.TransactionsByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
	tx := txs[0]
	if tx.Amount.Cents != 2599 || tx.Type != core.Expense {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if tx.Category != "food" {
		t.Fatalf("category = %s, want food (inferred from description)", tx.Category)
	}
}

func TestWebhookUnhandledTypeAcknowledged(t *testing.T) {
	s := newTestServer(t)

	payload := webhookPayload(t, "customer.updated", map[string]any{"id": "cus_x"})
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, signedWebhookRequest(t, payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200 ack", rec.Code)
	}
}

func TestCheckoutSessionWithoutKey(t *testing.T) {
	s := newTestServer(t)

	rec, env := doJSON(t, s, http.MethodPost, "/api/payments/checkout-session", map[string]any{
		"amount": "5.00",
	})
	if rec.Code != http.StatusInternalServerError || env.Success {
		t.Fatalf("status %d, want 500 when no secret key is configured", rec.Code)
	}
}
