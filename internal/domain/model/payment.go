package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type IntentStatus string

const (
	IntentStatusCreated   IntentStatus = "created"
	IntentStatusAttempted IntentStatus = "attempted"
	IntentStatusPaid      IntentStatus = "paid"
)

// Gateway-side record of an amount awaiting payment. Not persisted here.
type PaymentIntent struct {
	ID          string            `json:"id"`
	Amount      decimal.Decimal   `json:"amount"`
	AmountMinor int64             `json:"amount_minor"`
	Currency    string            `json:"currency"`
	Receipt     string            `json:"receipt,omitempty"`
	Status      IntentStatus      `json:"status"`
	Notes       map[string]string `json:"notes,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// What the gateway hands back after the shopper pays out-of-band.
type Settlement struct {
	IntentID     string `json:"intent_id"`
	SettlementID string `json:"settlement_id"`
	Signature    string `json:"signature"`
}
