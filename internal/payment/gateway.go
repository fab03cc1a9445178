package payment

import (
	"context"
	"fmt"

	"foodcart/internal/domain/model"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "INR"

var hundred = decimal.NewFromInt(100)

type IntentRequest struct {
	Amount   decimal.Decimal
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Gateway creates payment intents at the payment provider.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (model.PaymentIntent, error)
}

// ToMinorUnits converts 12.34 to 1234. Amounts must be positive with at most two decimals.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, amount)
	}
	minor := amount.Mul(hundred)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: %s has more than two decimals", ErrInvalidAmount, amount)
	}
	return minor.IntPart(), nil
}

func fromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
