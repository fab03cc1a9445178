package handler

import (
	"net/http"

	"foodcart/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

type CreateIntentRequest struct {
	Currency string            `json:"currency" validate:"omitempty,len=3,alpha"`
	Receipt  string            `json:"receipt" validate:"max=40"`
	Notes    map[string]string `json:"notes" validate:"max=15"`
}

type VerifySettlementRequest struct {
	IntentID     string `json:"intent_id" validate:"required,max=255"`
	SettlementID string `json:"settlement_id" validate:"required,max=255"`
	Signature    string `json:"signature" validate:"required,hexadecimal"`
}

func (h *PaymentHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/payments/intents", h.createIntent)
	g.POST("/payments/verify", h.verify)
	g.GET("/payments/intents/:id/rejections", h.rejections)
}

func (h *PaymentHandler) createIntent(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CreateIntentRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.CreateIntent(c.Request().Context(), userID, usecase.CreateIntentInput{
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// verify exchanges a gateway settlement for a proof token used by POST /orders.
func (h *PaymentHandler) verify(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req VerifySettlementRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.VerifySettlement(c.Request().Context(), userID, usecase.VerifySettlementInput{
		IntentID:     req.IntentID,
		SettlementID: req.SettlementID,
		Signature:    req.Signature,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) rejections(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.Rejections(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
