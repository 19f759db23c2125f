// Package worker processes payment-linked queue messages in the worker
// process.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/sample"
)

// LinkWorker turns payment-linked messages into sample transactions.
type LinkWorker struct {
	generator *sample.Generator
}

func NewLinkWorker(generator *sample.Generator) *LinkWorker {
	return &LinkWorker{generator: generator}
}

// HandleLinkMessage processes one message. Returned errors cause the
// delivery to be requeued by the consumer loop.
func (w *LinkWorker) HandleLinkMessage(ctx context.Context, msg *amqp.PaymentLinkedMessage) error {
	slog.InfoContext(ctx, "Processing payment linked message",
		"account_id", msg.AccountID,
		"user_id", msg.UserID)

	if err := w.generator.OnPaymentLinked(ctx, msg.AccountID, msg.UserID); err != nil {
		return fmt.Errorf("generate samples for account %s: %w", msg.AccountID, err)
	}
	return nil
}
