package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	bookingdomain "github.com/smallbiznis/venuebook/internal/booking/domain"
	eventdomain "github.com/smallbiznis/venuebook/internal/event/domain"
	paymentdomain "github.com/smallbiznis/venuebook/internal/payment/domain"
	paymentservice "github.com/smallbiznis/venuebook/internal/payment/service"
	"github.com/smallbiznis/venuebook/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if errors.Is(err, ErrRateLimited) {
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if code, ok := validationErrorCode(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, bookingdomain.ErrGuardFailed):
		code := bookingdomain.Code(err)
		status := http.StatusUnprocessableEntity
		if code == bookingdomain.GuardCodeActorNotAuthorized {
			status = http.StatusForbidden
		}
		return status, errorPayload{
			Type:    "guard_failed",
			Code:    code,
			Message: "booking rule not satisfied",
		}
	case errors.Is(err, bookingdomain.ErrInvalidTransition),
		errors.Is(err, paymentdomain.ErrNothingToPay):
		return http.StatusConflict, errorPayload{
			Type:    "invalid_transition",
			Message: "action not allowed in the current booking status",
		}
	case errors.Is(err, bookingdomain.ErrConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "booking changed concurrently, retry",
		}
	case errors.Is(err, bookingdomain.ErrExternalFailure),
		errors.Is(err, paymentdomain.ErrNotConfigured):
		return http.StatusBadGateway, errorPayload{
			Type:    "external_failure",
			Message: "upstream provider unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func validationErrorCode(err error) (string, bool) {
	candidates := []error{
		ErrInvalidRequest,
		bookingdomain.ErrInvalidGuests,
		bookingdomain.ErrInvalidPhone,
		bookingdomain.ErrInvalidPromo,
		bookingdomain.ErrInvalidStatus,
		bookingdomain.ErrEventNotOpen,
		paymentdomain.ErrInvalidType,
		pagination.ErrInvalidPageToken,
	}
	for _, candidate := range candidates {
		if errors.Is(err, candidate) {
			return candidate.Error(), true
		}
	}
	if paymentservice.IsClientError(err) {
		return "invalid_callback", true
	}
	return "", false
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, bookingdomain.ErrNotFound),
		errors.Is(err, bookingdomain.ErrBookingNotFound),
		errors.Is(err, bookingdomain.ErrEventNotFound),
		errors.Is(err, eventdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "invalid_guests_count":
		return "guests_count"
	case "event_not_open":
		return "event_id"
	case "invalid_callback":
		return "data"
	}
	return strings.TrimPrefix(code, "invalid_")
}
