package handler

import (
	"net/http"

	"foodcart/internal/middleware"
	"foodcart/internal/pkg/logging"
	"foodcart/internal/usecase"
	"foodcart/internal/validator"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// writeError maps usecase errors to their status. Anything else is a 500 with no details.
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	log := logging.FromContext(c.Request().Context())

	if he, ok := usecase.AsHTTPError(err); ok {
		if he.Err != nil {
			log.Error("request failed", zap.Int("status", he.Status), zap.String("code", he.Code), zap.Error(he.Err))
		}
		return c.JSON(he.Status, ErrorResponse{Error: he.Message, Code: he.Code})
	}

	//500
	log.Error("unhandled error", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: usecase.CodeInternal})
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: usecase.CodeUnauthorized})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: usecase.CodeValidation})
}

// bind decodes the body and runs the echo validator. Failures are 400s for writeError.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(req); err != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, validator.Message(err))
	}
	return nil
}
