package service

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"campusbus/identity/internal/repository"
)

// ErrorKind maps sentinel errors to a stable label for logs and metrics.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrTokenMissing):
		return "token_missing"
	case errors.Is(err, ErrTokenInvalid):
		return "token_invalid"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenConsumed):
		return "token_consumed"
	case errors.Is(err, ErrTargetUserMissing):
		return "target_user_missing"
	case errors.Is(err, ErrWeakPassword):
		return "weak_password"
	case errors.Is(err, ErrUnknownAccount):
		return "unknown_account"
	case errors.Is(err, ErrReservedIdentifier):
		return "reserved_identifier"
	case errors.Is(err, repository.ErrDuplicateIdentifier):
		return "duplicate_identifier"
	case errors.Is(err, repository.ErrUserNotFound):
		return "not_found"
	}

	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		return "validation"
	}
	return "unexpected"
}
