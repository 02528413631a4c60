package signup

import "github.com/goliatone/go-errors"

const (
	TextCodeTeamNameRequired   = "signup_team_name_required"
	TextCodeInviteRequired     = "signup_invite_required"
	TextCodeDiscordIDRequired  = "signup_discord_id_required"
	TextCodeDiscordIDInvalid   = "signup_discord_id_invalid"
	TextCodeDiscordIDTaken     = "signup_discord_id_taken"
	TextCodeGuildCheckFailed   = "signup_guild_check_failed"
	TextCodeProviderConflict   = "signup_provider_conflict"
	TextCodeAccountDeactivated = "signup_account_deactivated"
	TextCodeEmailTaken         = "signup_email_taken"
	TextCodeTeamNameTaken      = "signup_team_name_taken"
	TextCodeFailed             = "signup_failed"
)

// ErrTeamNameRequired is returned when the request names no team.
var ErrTeamNameRequired = errors.New("team name is required", errors.CategoryValidation).
	WithTextCode(TextCodeTeamNameRequired).
	WithCode(errors.CodeBadRequest)

// ErrInviteRequired rejects self-registration; signup is invite-only.
var ErrInviteRequired = errors.New("an invitation is required to sign up", errors.CategoryAuthz).
	WithTextCode(TextCodeInviteRequired).
	WithCode(errors.CodeForbidden)

// ErrDiscordIDRequired is returned when the request has no discord id.
var ErrDiscordIDRequired = errors.New("discord id is required", errors.CategoryValidation).
	WithTextCode(TextCodeDiscordIDRequired).
	WithCode(errors.CodeBadRequest)

// ErrDiscordIDInvalid is returned when the discord id is not a
// 17 to 19 digit snowflake.
var ErrDiscordIDInvalid = errors.New("discord id is not a valid snowflake", errors.CategoryValidation).
	WithTextCode(TextCodeDiscordIDInvalid).
	WithCode(errors.CodeBadRequest)

// ErrDiscordIDTaken is returned when the discord id is already bound to
// another account.
var ErrDiscordIDTaken = errors.New("discord id is already in use", errors.CategoryConflict).
	WithTextCode(TextCodeDiscordIDTaken).
	WithCode(errors.CodeConflict)

// ErrGuildCheckFailed is the generic rejection when guild membership
// cannot be confirmed. Detail stays in the logs.
var ErrGuildCheckFailed = errors.New("could not confirm community membership", errors.CategoryAuthz).
	WithTextCode(TextCodeGuildCheckFailed).
	WithCode(errors.CodeForbidden)

// ErrProviderConflict is returned when the email belongs to an account
// created through a different identity provider.
var ErrProviderConflict = errors.New("email is registered under a different sign-in method", errors.CategoryConflict).
	WithTextCode(TextCodeProviderConflict).
	WithCode(errors.CodeConflict)

// ErrAccountDeactivated is returned when the email belongs to a
// deactivated account.
var ErrAccountDeactivated = errors.New("account has been deactivated", errors.CategoryAuthz).
	WithTextCode(TextCodeAccountDeactivated).
	WithCode(errors.CodeForbidden)

// ErrEmailTaken is returned when the commit hits the users email
// uniqueness constraint.
var ErrEmailTaken = errors.New("email is already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrTeamNameTaken is returned when the commit hits the teams name
// uniqueness constraint.
var ErrTeamNameTaken = errors.New("team name is already taken", errors.CategoryConflict).
	WithTextCode(TextCodeTeamNameTaken).
	WithCode(errors.CodeConflict)

// ErrSignupFailed is the catch-all for commit failures that carry no
// actionable detail for the caller.
var ErrSignupFailed = errors.New("signup failed", errors.CategoryInternal).
	WithTextCode(TextCodeFailed).
	WithCode(errors.CodeInternal)
