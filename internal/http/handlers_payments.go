package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v78"
	checkoutsession "github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/webhook"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/storage"
)

const defaultDonation = "5.00"

// handleCheckoutSession creates a Stripe Checkout session for a one-off
// donation payment.
func (s *Server) handleCheckoutSession(w http.ResponseWriter, r *http.Request) {
	if s.stripeSecretKey == "" {
		slog.ErrorContext(r.Context(), "Checkout requested without a Stripe secret key")
		respondError(w, http.StatusInternalServerError, "payments are not configured")
		return
	}

	var req struct {
		Amount   json.Number `json:"amount"`
		Currency string      `json:"currency"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Amount.String() == "" {
		req.Amount = defaultDonation
	}
	amount, err := core.ParseMoney(req.Amount.String())
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	stripe.Key = s.stripeSecretKey
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("BudgetBuddy donation"),
				},
				UnitAmount: stripe.Int64(amount.Cents),
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(s.checkoutSuccessURL),
		CancelURL:  stripe.String(s.checkoutCancelURL),
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		slog.ErrorContext(r.Context(), "Checkout session creation failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create checkout session")
		return
	}

	respond(w, http.StatusOK, map[string]string{
		"id":  sess.ID,
		"url": sess.URL,
	})
}

// handleStripeWebhook verifies the provider signature and dispatches on
// the event type. Unhandled types are acknowledged so the provider stops
// retrying them.
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if s.stripeWebhookSecret == "" {
		slog.ErrorContext(r.Context(), "Webhook received without a configured secret")
		respondError(w, http.StatusInternalServerError, "webhooks are not configured")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read payload")
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), s.stripeWebhookSecret)
	if err != nil {
		slog.WarnContext(r.Context(), "Webhook signature verification failed", "error", err)
		respondError(w, http.StatusBadRequest, "signature verification failed")
		return
	}

	slog.InfoContext(r.Context(), "Webhook event received", "type", string(event.Type), "id", event.ID)

	switch event.Type {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			respondError(w, http.StatusBadRequest, "malformed payment intent")
			return
		}
		pmID := ""
		if pi.PaymentMethod != nil {
			pmID = pi.PaymentMethod.ID
		}
		s.recordPaymentExpense(r, customerID(pi.Customer), pmID, pi.Amount, pi.Description)

	case "charge.succeeded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			respondError(w, http.StatusBadRequest, "malformed charge")
			return
		}
		s.recordPaymentExpense(r, customerID(ch.Customer), ch.PaymentMethod, ch.Amount, ch.Description)

	case "account.external_account.created":
		s.handleExternalAccountCreated(w, r, event.Data.Raw)
		return

	case "account.external_account.deleted":
		s.handleExternalAccountDeleted(r, event.Data.Raw)

	default:
		slog.InfoContext(r.Context(), "Unhandled webhook event", "type", string(event.Type))
	}

	respond(w, http.StatusOK, map[string]bool{"received": true})
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

// recordPaymentExpense writes an expense transaction for a successful
// payment and, when the payment method maps to a linked account,
// decrements its balance. Unattributable events are logged and dropped;
// the provider still gets a 2xx.
func (s *Server) recordPaymentExpense(r *http.Request, custID, pmID string, amountCents int64, description string) {
	ctx := r.Context()
	if custID == "" || amountCents <= 0 {
		slog.WarnContext(ctx, "Payment event without customer or amount, skipping",
			"customer", custID, "amount_cents", amountCents)
		return
	}

	profile, err := s.store.ProfileByStripeCustomer(ctx, custID)
	if err != nil {
		slog.WarnContext(ctx, "Payment event for unknown customer, skipping", "customer", custID, "error", err)
		return
	}

	if description == "" {
		description = "Card payment"
	}

	accountID := ""
	if pmID != "" {
		if account, err := s.store.AccountByStripePaymentMethod(ctx, profile.UserID, pmID); err == nil {
			accountID = account.ID
			if err := s.store.AdjustAccountBalance(ctx, account.ID, -amountCents); err != nil {
				slog.ErrorContext(ctx, "Failed to adjust account balance", "account_id", account.ID, "error", err)
			}
		}
	}

	tx := core.Transaction{
		UserID:      profile.UserID,
		AccountID:   accountID,
		Amount:      core.Money{Cents: amountCents},
		Description: description,
		Category:    core.InferCategory(description),
		Type:        core.Expense,
		Date:        time.Now().UTC(),
	}
	if err := s.store.AddTransaction(ctx, &tx); err != nil {
		slog.ErrorContext(ctx, "Failed to record payment transaction", "error", err)
	}
}

// externalAccount covers the shared fields of bank account and card
// objects carried by external_account events.
type externalAccount struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	BankName string `json:"bank_name"`
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
}

func (s *Server) handleExternalAccountCreated(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	ctx := r.Context()

	var ext externalAccount
	if err := json.Unmarshal(raw, &ext); err != nil {
		respondError(w, http.StatusBadRequest, "malformed external account")
		return
	}

	profile, err := s.store.ProfileByStripeCustomer(ctx, ext.Customer)
	if err != nil {
		slog.WarnContext(ctx, "External account for unknown customer, skipping", "customer", ext.Customer)
		respond(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	institution := ext.BankName
	if institution == "" {
		institution = ext.Brand
	}
	name := institution
	if name == "" {
		name = "Linked account"
	}
	account := core.Account{
		UserID:                profile.UserID,
		Name:                  name,
		Institution:           institution,
		LastFour:              ext.Last4,
		Connected:             true,
		StripePaymentMethodID: ext.ID,
	}
	if err := s.store.AddAccount(ctx, &account); err != nil {
		slog.ErrorContext(ctx, "Failed to create linked account", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	// Hand sample generation to the worker; without a queue it runs
	// inline before the webhook is acknowledged.
	if s.publisher != nil {
		if err := s.publisher.PublishPaymentLinked(ctx, account.ID, account.UserID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish payment linked event, generating inline", "error", err)
			s.generateInline(ctx, account.ID, account.UserID)
		}
	} else {
		s.generateInline(ctx, account.ID, account.UserID)
	}

	respond(w, http.StatusOK, map[string]string{"accountId": account.ID})
}

func (s *Server) generateInline(ctx context.Context, accountID, userID string) {
	if s.sampler == nil {
		return
	}
	if err := s.sampler.OnPaymentLinked(ctx, accountID, userID); err != nil {
		slog.ErrorContext(ctx, "Inline sample generation failed", "account_id", accountID, "error", err)
	}
}

func (s *Server) handleExternalAccountDeleted(r *http.Request, raw json.RawMessage) {
	ctx := r.Context()

	var ext externalAccount
	if err := json.Unmarshal(raw, &ext); err != nil {
		slog.WarnContext(ctx, "Malformed external account on delete", "error", err)
		return
	}

	profile, err := s.store.ProfileByStripeCustomer(ctx, ext.Customer)
	if err != nil {
		slog.WarnContext(ctx, "External account delete for unknown customer", "customer", ext.Customer)
		return
	}

	account, err := s.store.AccountByStripePaymentMethod(ctx, profile.UserID, ext.ID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.ErrorContext(ctx, "Failed to look up account", "error", err)
		}
		return
	}
	if err := s.store.SetAccountConnected(ctx, account.ID, false); err != nil {
		slog.ErrorContext(ctx, "Failed to disconnect account", "account_id", account.ID, "error", err)
	}
}
