package amqp

import (
	"encoding/json"
	"time"
)

// PaymentLinkedMessage tells the worker a payment method was linked.
// Carries only the ids; the worker loads the account from the database.
type PaymentLinkedMessage struct {
	AccountID string    `json:"account_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPaymentLinkedMessage(accountID, userID string) *PaymentLinkedMessage {
	return &PaymentLinkedMessage{
		AccountID: accountID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *PaymentLinkedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PaymentLinkedMessageFromJSON(data []byte) (*PaymentLinkedMessage, error) {
	var msg PaymentLinkedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.AccountID == "" {
		return nil, errEmptyAccountID
	}
	return &msg, nil
}
