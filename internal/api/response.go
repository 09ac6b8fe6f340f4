package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/danyeu/fx"
	"github.com/danyeu/fx/internal/logger"
	"github.com/danyeu/fx/internal/rates"
	"github.com/danyeu/fx/internal/trader"
)

// Response is the envelope of every API response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo describes a failed request.
type ErrorInfo struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func successResponse(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Success: false, Error: &ErrorInfo{Message: message}})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, trader.ErrInvalidCurrency),
		errors.Is(err, trader.ErrInvalidQuantity),
		errors.Is(err, trader.ErrZeroQuantity),
		errors.Is(err, fx.ErrInvalidCurrency),
		errors.Is(err, fx.ErrRange):
		return http.StatusBadRequest
	case errors.Is(err, trader.ErrQuoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, trader.ErrQuoteExpired):
		return http.StatusGone
	case errors.Is(err, trader.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, rates.ErrUnavailable), errors.Is(err, rates.ErrInvalidRate):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// serviceError writes err with its mapped status. Internal errors are
// logged and hidden from the client.
func serviceError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
		errorResponse(c, status, "internal server error")
		return
	}
	errorResponse(c, status, err.Error())
}

// bindingError reports a malformed request body, listing the fields that
// failed validation.
func bindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = fieldMessage(fe)
	}
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   &ErrorInfo{Message: "validation failed", Fields: fields},
	})
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters long", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
