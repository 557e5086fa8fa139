package api

import (
	"errors"
	"net/http"

	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/emissions"
	"github.com/carboncoin/carboncoin-api/internal/service"
	"github.com/carboncoin/carboncoin-api/internal/service/auth"
	"github.com/carboncoin/carboncoin-api/internal/store"
	"github.com/carboncoin/carboncoin-api/internal/verify"
)

// MapErrorToStatusCode translates service and domain errors into HTTP status
// codes. Unknown errors map to 500.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken):
		return http.StatusUnauthorized

	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, emissions.ErrUnknownDevice):
		return http.StatusNotFound

	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, emissions.ErrDeviceExists),
		errors.Is(err, verify.ErrAlreadyDecided):
		return http.StatusConflict

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientHoldings),
		errors.Is(err, domain.ErrSupplyExceeded),
		errors.Is(err, service.ErrApplicationRejected),
		errors.Is(err, verify.ErrUnknownCriteria),
		isDomainValidationError(err):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for an error. Validation
// and business-rule errors carry useful detail for the caller; anything that
// maps to a 500 is reduced to a generic message so internals never leak.
func GetSafeErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}

	if MapErrorToStatusCode(err) < http.StatusInternalServerError {
		return err.Error()
	}
	if fallback != "" {
		return fallback
	}
	return "An unexpected error occurred"
}

// isDomainValidationError matches the entity validation sentinels that are
// not wrapped in domain.ErrValidation.
func isDomainValidationError(err error) bool {
	for _, sentinel := range []error{
		domain.ErrEmptyUsername,
		domain.ErrUsernameTooLong,
		domain.ErrPasswordTooShort,
		domain.ErrPasswordTooLong,
		domain.ErrEmptyPassword,
		domain.ErrInvalidRole,
		domain.ErrMissingCompany,
		domain.ErrUnexpectedCompany,
		domain.ErrEmptyCompanyName,
		domain.ErrEmptySymbol,
		domain.ErrSymbolTooLong,
		domain.ErrInvalidSupply,
		domain.ErrInvalidBaseline,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
