package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/parcella/internal/auth/domain"
	"github.com/smallbiznis/parcella/internal/authorization"
	calendardomain "github.com/smallbiznis/parcella/internal/calendar/domain"
	catalogdomain "github.com/smallbiznis/parcella/internal/catalog/domain"
	"github.com/smallbiznis/parcella/internal/fiscal"
	invoicedomain "github.com/smallbiznis/parcella/internal/invoice/domain"
	patientdomain "github.com/smallbiznis/parcella/internal/patient/domain"
	plandomain "github.com/smallbiznis/parcella/internal/plan/domain"
	profiledomain "github.com/smallbiznis/parcella/internal/profile/domain"
	"github.com/smallbiznis/parcella/internal/providers/email"
	"github.com/smallbiznis/parcella/internal/ratelimit"
	supportdomain "github.com/smallbiznis/parcella/internal/support/domain"
	"github.com/smallbiznis/parcella/pkg/db/pagination"
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
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
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

// classifyErrorForLog feeds the request logger with the same type the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(err, code),
				},
			},
		}
	}

	var limitErr *plandomain.LimitError
	switch {
	case errors.As(err, &limitErr):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "plan_limit_reached",
			Message: limitErr.Error(),
		}
	case errors.Is(err, plandomain.ErrPlanLimitReached):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "plan_limit_reached",
			Message: "plan limit reached",
		}
	case errors.Is(err, ratelimit.ErrTooManyAttempts):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many attempts",
		}
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, supportdomain.ErrAdminOnly):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, email.ErrDisabled):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
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

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, pagination.ErrInvalidPageToken),
		errors.Is(err, fiscal.ErrInvalidRegime),
		errors.Is(err, fiscal.ErrInvalidAmount):
		return true
	case isAuthValidationError(err),
		isProfileValidationError(err),
		isPatientValidationError(err),
		isCatalogValidationError(err),
		isInvoiceValidationError(err),
		isCalendarValidationError(err),
		isPlanValidationError(err),
		isSupportValidationError(err):
		return true
	default:
		return false
	}
}

func isAuthValidationError(err error) bool {
	return errors.Is(err, authdomain.ErrWeakPassword) ||
		errors.Is(err, authdomain.ErrInvalidEmail) ||
		errors.Is(err, authdomain.ErrInvalidRole)
}

func isProfileValidationError(err error) bool {
	switch {
	case errors.Is(err, profiledomain.ErrInvalidDisplayName),
		errors.Is(err, profiledomain.ErrInvalidCodiceFiscale),
		errors.Is(err, profiledomain.ErrInvalidPartitaIVA),
		errors.Is(err, profiledomain.ErrInvalidPercentage),
		errors.Is(err, profiledomain.ErrInvalidPrefix),
		errors.Is(err, profiledomain.ErrInvalidDueDays):
		return true
	default:
		return false
	}
}

func isPatientValidationError(err error) bool {
	switch {
	case errors.Is(err, patientdomain.ErrInvalidID),
		errors.Is(err, patientdomain.ErrInvalidName),
		errors.Is(err, patientdomain.ErrInvalidEmail),
		errors.Is(err, patientdomain.ErrInvalidCodiceFiscale):
		return true
	default:
		return false
	}
}

func isCatalogValidationError(err error) bool {
	switch {
	case errors.Is(err, catalogdomain.ErrInvalidID),
		errors.Is(err, catalogdomain.ErrInvalidName),
		errors.Is(err, catalogdomain.ErrInvalidPrice),
		errors.Is(err, catalogdomain.ErrInvalidDuration):
		return true
	default:
		return false
	}
}

func isInvoiceValidationError(err error) bool {
	switch {
	case errors.Is(err, invoicedomain.ErrInvalidInvoiceID),
		errors.Is(err, invoicedomain.ErrInvalidPatient),
		errors.Is(err, invoicedomain.ErrInvalidCatalogItem),
		errors.Is(err, invoicedomain.ErrInvalidAmount),
		errors.Is(err, invoicedomain.ErrInvalidStatus),
		errors.Is(err, invoicedomain.ErrInvalidIssueDate),
		errors.Is(err, invoicedomain.ErrMissingDescription):
		return true
	default:
		return false
	}
}

func isCalendarValidationError(err error) bool {
	switch {
	case errors.Is(err, calendardomain.ErrInvalidID),
		errors.Is(err, calendardomain.ErrInvalidTitle),
		errors.Is(err, calendardomain.ErrInvalidKind),
		errors.Is(err, calendardomain.ErrInvalidTimes),
		errors.Is(err, calendardomain.ErrInvalidPatient),
		errors.Is(err, calendardomain.ErrInvalidMetadata),
		errors.Is(err, calendardomain.ErrInvalidRange):
		return true
	default:
		return false
	}
}

func isPlanValidationError(err error) bool {
	return errors.Is(err, plandomain.ErrInvalidTier)
}

func isSupportValidationError(err error) bool {
	switch {
	case errors.Is(err, supportdomain.ErrInvalidID),
		errors.Is(err, supportdomain.ErrInvalidSubject),
		errors.Is(err, supportdomain.ErrInvalidBody),
		errors.Is(err, supportdomain.ErrInvalidStatus):
		return true
	default:
		return false
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, authorization.ErrInvalidActor):
		return true
	// services report a missing principal this way
	case errors.Is(err, profiledomain.ErrInvalidUser),
		errors.Is(err, plandomain.ErrInvalidUser),
		errors.Is(err, patientdomain.ErrInvalidOwner),
		errors.Is(err, catalogdomain.ErrInvalidOwner),
		errors.Is(err, invoicedomain.ErrInvalidOwner),
		errors.Is(err, calendardomain.ErrInvalidOwner),
		errors.Is(err, supportdomain.ErrInvalidOwner):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, patientdomain.ErrDuplicatePatient),
		errors.Is(err, patientdomain.ErrArchived),
		errors.Is(err, catalogdomain.ErrInactive),
		errors.Is(err, invoicedomain.ErrPatientArchived),
		errors.Is(err, invoicedomain.ErrPatientNoEmail),
		errors.Is(err, invoicedomain.ErrInvalidTransition),
		errors.Is(err, invoicedomain.ErrNotPaid),
		errors.Is(err, supportdomain.ErrTicketClosed):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, patientdomain.ErrNotFound),
		errors.Is(err, catalogdomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, calendardomain.ErrNotFound),
		errors.Is(err, supportdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	// the typed fiscal errors carry details after the code
	case errors.Is(err, fiscal.ErrInvalidRegime):
		return fiscal.ErrInvalidRegime.Error()
	case errors.Is(err, fiscal.ErrInvalidAmount):
		return fiscal.ErrInvalidAmount.Error()
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(err error, code string) string {
	switch {
	case code == "invalid_request":
		return "invalid request"
	case errors.Is(err, fiscal.ErrInvalidRegime), errors.Is(err, fiscal.ErrInvalidAmount):
		return err.Error()
	default:
		return "invalid value"
	}
}
