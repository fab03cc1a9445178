package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"foodcart/internal/domain/model"
	"foodcart/internal/payment"
	"foodcart/internal/pkg/logging"
	repo "foodcart/internal/repository"

	"go.uber.org/zap"
)

// PaymentUsecase prices intents from the shopper's cart and turns verified settlements into proof tokens.
type PaymentUsecase struct {
	verifier     *payment.Verifier
	carts        repo.CartRepository
	storeTimeout time.Duration
}

func NewPaymentUsecase(verifier *payment.Verifier, carts repo.CartRepository, storeTimeout time.Duration) *PaymentUsecase {
	return &PaymentUsecase{verifier: verifier, carts: carts, storeTimeout: storeTimeout}
}

type CreateIntentInput struct {
	Currency string
	Receipt  string
	Notes    map[string]string
}

type IntentResponse struct {
	Intent      model.PaymentIntent `json:"intent"`
	CartID      string              `json:"cart_id"`
	CartVersion int64               `json:"cart_version"`
}

type VerifySettlementInput struct {
	IntentID     string
	SettlementID string
	Signature    string
}

type VerifySettlementResponse struct {
	ProofToken string    `json:"proof_token"`
	ExpiresAt  time.Time `json:"expires_at"`
	IntentID   string    `json:"intent_id"`
	PaymentID  string    `json:"payment_id"`
}

// CreateIntent opens a gateway intent for the cart's current grand total.
func (u *PaymentUsecase) CreateIntent(ctx context.Context, userID int64, in CreateIntentInput) (IntentResponse, error) {
	if userID <= 0 {
		return IntentResponse{}, errUnauthorized()
	}

	cart, err := u.loadCart(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return IntentResponse{}, errNotFound("cart")
	}
	if err != nil {
		return IntentResponse{}, errStore(err)
	}
	if cart.IsEmpty() {
		return IntentResponse{}, newCodedError(http.StatusBadRequest, CodeEmptyCart, "cart is empty")
	}

	receipt := in.Receipt
	if receipt == "" {
		receipt = cart.ID
	}
	notes := map[string]string{}
	for k, v := range in.Notes {
		notes[k] = v
	}
	notes["cart_id"] = cart.ID
	notes["user_id"] = strconv.FormatInt(userID, 10)
	notes["vendor_id"] = strconv.FormatInt(cart.VendorID, 10)

	intent, err := u.verifier.CreateIntent(ctx, payment.Checkout{
		UserID:      userID,
		CartID:      cart.ID,
		CartVersion: cart.Version,
		Amount:      cart.GrandTotal,
		Currency:    in.Currency,
		Receipt:     receipt,
		Notes:       notes,
	})
	if errors.Is(err, payment.ErrGateway) {
		return IntentResponse{}, &HTTPError{
			Status:  http.StatusBadGateway,
			Code:    CodeGateway,
			Message: "payment gateway unavailable",
			Err:     err,
		}
	}
	if err != nil {
		logging.FromContext(ctx).Error("record payment intent failed", zap.Error(err))
		return IntentResponse{}, errStore(err)
	}

	return IntentResponse{Intent: intent, CartID: cart.ID, CartVersion: cart.Version}, nil
}

// VerifySettlement checks the gateway signature and returns a proof token for the order endpoint.
func (u *PaymentUsecase) VerifySettlement(ctx context.Context, userID int64, in VerifySettlementInput) (VerifySettlementResponse, error) {
	if userID <= 0 {
		return VerifySettlementResponse{}, errUnauthorized()
	}

	proof, err := u.verifier.VerifySettlement(ctx, userID, model.Settlement{
		IntentID:     in.IntentID,
		SettlementID: in.SettlementID,
		Signature:    in.Signature,
	})
	if errors.Is(err, payment.ErrInvalidSignature) {
		return VerifySettlementResponse{}, newCodedError(http.StatusBadRequest, CodeInvalidSignature, "invalid signature")
	}
	if err != nil {
		logging.FromContext(ctx).Error("verify settlement failed", zap.Error(err))
		return VerifySettlementResponse{}, errStore(err)
	}

	token, exp, err := u.verifier.IssueProof(proof)
	if err != nil {
		return VerifySettlementResponse{}, &HTTPError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal error", Err: err}
	}

	return VerifySettlementResponse{
		ProofToken: token,
		ExpiresAt:  exp,
		IntentID:   proof.IntentID(),
		PaymentID:  proof.PaymentID(),
	}, nil
}

type RejectionResponse struct {
	SettlementID string    `json:"settlement_id"`
	Reason       string    `json:"reason"`
	At           time.Time `json:"at"`
}

// Rejections lists the caller's refused settlement attempts for an intent.
func (u *PaymentUsecase) Rejections(ctx context.Context, userID int64, intentID string) ([]RejectionResponse, error) {
	if userID <= 0 {
		return nil, errUnauthorized()
	}
	if intentID == "" {
		return nil, errValidation("invalid intent id")
	}

	logs, err := u.verifier.Rejections(ctx, userID, intentID)
	if err != nil {
		return nil, errStore(err)
	}

	out := make([]RejectionResponse, 0, len(logs))
	for _, l := range logs {
		var detail struct {
			SettlementID string `json:"settlement_id"`
			Reason       string `json:"reason"`
		}
		_ = json.Unmarshal([]byte(l.DetailJSON), &detail)
		out = append(out, RejectionResponse{SettlementID: detail.SettlementID, Reason: detail.Reason, At: l.CreatedAt})
	}
	return out, nil
}

func (u *PaymentUsecase) loadCart(ctx context.Context, userID int64) (model.Cart, error) {
	ctx, cancel := boundStore(ctx, u.storeTimeout)
	defer cancel()
	return u.carts.FindByUserID(ctx, userID)
}
