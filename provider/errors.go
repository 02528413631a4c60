package provider

import "github.com/goliatone/go-errors"

const (
	TextCodeStrategyNotFound    = "provider_strategy_not_found"
	TextCodeTokenExchangeFail   = "provider_token_exchange_failed"
	TextCodeUserInfoFail        = "provider_user_info_failed"
	TextCodeEmailMissing        = "provider_email_missing"
	TextCodeBadCredentials      = "provider_bad_credentials"
	TextCodeAccountSuspended    = "provider_account_suspended"
	TextCodeTooManyAttempts     = "provider_too_many_attempts"
	TextCodeAccountNotFound     = "provider_account_not_found"
	TextCodeIDTokenInvalid      = "provider_id_token_invalid"
	TextCodeIDTokenWrongTarget  = "provider_id_token_wrong_target"
	TextCodeIDTokenUnverifiable = "provider_id_token_unverifiable"
)

// ErrStrategyNotFound is returned when a requested strategy is not installed.
var ErrStrategyNotFound = errors.New("authentication strategy not found", errors.CategoryNotFound).
	WithTextCode(TextCodeStrategyNotFound).
	WithCode(errors.CodeNotFound)

// ErrTokenExchangeFailed is returned when the code-for-token exchange fails.
var ErrTokenExchangeFailed = errors.New("token exchange failed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExchangeFail).
	WithCode(errors.CodeUnauthorized)

// ErrUserInfoFailed is returned when fetching the provider profile fails.
var ErrUserInfoFailed = errors.New("failed to fetch user info", errors.CategoryAuth).
	WithTextCode(TextCodeUserInfoFail).
	WithCode(errors.CodeUnauthorized)

// ErrEmailMissing is returned when a provider profile carries no email.
var ErrEmailMissing = errors.New("provider profile has no email", errors.CategoryAuth).
	WithTextCode(TextCodeEmailMissing).
	WithCode(errors.CodeForbidden)

// ErrBadCredentials is the uniform rejection for a wrong email or
// password; callers never learn which.
var ErrBadCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeBadCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAccountSuspended is returned for deactivated accounts.
var ErrAccountSuspended = errors.New("account is deactivated", errors.CategoryAuth).
	WithTextCode(TextCodeAccountSuspended).
	WithCode(errors.CodeForbidden)

// ErrTooManyAttempts is returned while the login cooldown is in force.
var ErrTooManyAttempts = errors.New("too many login attempts", errors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrIDTokenInvalid is returned when a mobile ID token fails signature
// or claims validation.
var ErrIDTokenInvalid = errors.New("id token invalid", errors.CategoryAuth).
	WithTextCode(TextCodeIDTokenInvalid).
	WithCode(errors.CodeUnauthorized)
