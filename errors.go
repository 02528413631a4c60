package identity

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials = "identity_invalid_credentials"
	TextCodeIdentityNotFound   = "identity_not_found"
	TextCodeAccountLocked      = "identity_account_locked"
	TextCodeAccountDeactivated = "identity_account_deactivated"
	TextCodeTokenExpired       = "identity_token_expired"
	TextCodeTokenMalformed     = "identity_token_malformed"
	TextCodeRedirectMissing    = "identity_redirect_missing"
)

// ErrIdentityNotFound is returned when no account matches an identifier.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidCredentials is returned when email/password verification fails.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAccountLocked is returned when login attempts exceeded the allowance.
var ErrAccountLocked = errors.New("account temporarily locked", errors.CategoryAuth).
	WithTextCode(TextCodeAccountLocked).
	WithCode(errors.CodeForbidden)

// ErrAccountDeactivated is returned when the account was deactivated.
var ErrAccountDeactivated = errors.New("account deactivated", errors.CategoryAuth).
	WithTextCode(TextCodeAccountDeactivated).
	WithCode(errors.CodeForbidden)

// ErrTokenExpired is returned for expired verification or reset tokens.
var ErrTokenExpired = errors.New("token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens we cannot parse or verify.
var ErrTokenMalformed = errors.New("token malformed", errors.CategoryBadInput).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeBadRequest)

// ErrRedirectMissing is returned when a provider flow has no configured
// redirect target. Logged at request time for the affected endpoint.
var ErrRedirectMissing = errors.New("redirect URL not configured", errors.CategoryOperation).
	WithTextCode(TextCodeRedirectMissing).
	WithCode(errors.CodeInternal)

// ErrNoEmptyString is the error we use for empty password input
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the bcrypt mismatch translated to our taxonomy
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)
