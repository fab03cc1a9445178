package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
)

const proofIssuer = "foodcart-payments"

type proofClaims struct {
	IntentID     string `json:"iid"`
	SettlementID string `json:"sid"`
	UserID       int64  `json:"uid"`
	CartID       string `json:"cid"`
	CartVersion  int64  `json:"cv"`
	// decimal string, never a float
	Amount string `json:"amt"`
	jwt.RegisteredClaims
}

// IssueProof signs p into a short-lived token the client hands to the order endpoint.
func (v *Verifier) IssueProof(p VerifiedPayment) (string, time.Time, error) {
	if p.IsZero() {
		return "", time.Time{}, ErrInvalidProof
	}
	now := v.now()
	exp := now.Add(v.proofTTL)

	claims := proofClaims{
		IntentID:     p.intentID,
		SettlementID: p.settlementID,
		UserID:       p.userID,
		CartID:       p.cartID,
		CartVersion:  p.cartVersion,
		Amount:       p.amount.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    proofIssuer,
			Subject:   p.settlementID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.proofKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign proof: %w", err)
	}
	return signed, exp, nil
}

// ParseProof validates a token from IssueProof and returns the payment it stands for.
func (v *Verifier) ParseProof(raw string) (VerifiedPayment, error) {
	if raw == "" {
		return VerifiedPayment{}, ErrInvalidProof
	}

	var claims proofClaims
	// expiry is checked below against the verifier clock
	parser := jwt.Parser{SkipClaimsValidation: true, ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	token, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return v.proofKey, nil
	})
	if err != nil || token == nil || !token.Valid {
		return VerifiedPayment{}, ErrInvalidProof
	}
	if !claims.VerifyExpiresAt(v.now(), true) {
		return VerifiedPayment{}, ErrInvalidProof
	}
	if claims.Issuer != proofIssuer || claims.IntentID == "" || claims.SettlementID == "" ||
		claims.UserID <= 0 || claims.CartID == "" {
		return VerifiedPayment{}, ErrInvalidProof
	}
	amount, err := decimal.NewFromString(claims.Amount)
	if err != nil || !amount.IsPositive() {
		return VerifiedPayment{}, ErrInvalidProof
	}

	return VerifiedPayment{
		intentID:     claims.IntentID,
		settlementID: claims.SettlementID,
		userID:       claims.UserID,
		cartID:       claims.CartID,
		cartVersion:  claims.CartVersion,
		amount:       amount,
	}, nil
}
