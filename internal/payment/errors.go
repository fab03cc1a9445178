package payment

import "errors"

var (
	// gateway unreachable, breaker open, or the intent request was refused
	ErrGateway = errors.New("payment gateway error")
	// amount not positive or finer than the currency's minor unit
	ErrInvalidAmount = errors.New("invalid amount")
	// settlement signature did not match, or the settlement was already rejected
	ErrInvalidSignature = errors.New("invalid settlement signature")
	// no intent record, or it expired
	ErrUnknownIntent = errors.New("unknown payment intent")
	// proof token is malformed, expired or signed with another key
	ErrInvalidProof = errors.New("invalid payment proof")
)
