// Package provider holds the identity provider registry and the
// strategies behind it: local email/password plus the OAuth code flows.
// The package never reaches back into the application; callers hand it
// a user store and credentials at startup.
package provider

import (
	"context"
	"time"
)

// Logger is implemented by the application logger. Declared here to
// keep this package free of upstream imports.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Credentials is one provider's OAuth client registration. Absent
// credentials mean the provider is not offered.
type Credentials struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Present reports whether the registration is complete enough to use.
func (c Credentials) Present() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.CallbackURL != ""
}

// Token is an OAuth2 token response.
type Token struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       []string
}

// Profile is the normalized user information a strategy extracts from
// its provider.
type Profile struct {
	Provider       string
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	AvatarURL      string
	Raw            map[string]any
}

// Strategy identifies an installed authentication strategy.
type Strategy interface {
	Name() string
}

// OAuthStrategy is the authorization-code flow contract.
type OAuthStrategy interface {
	Strategy
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Token, error)
	UserInfo(ctx context.Context, token *Token) (*Profile, error)
}

// Account is the registry's view of a stored user. The application
// adapts its persistence model to this shape.
type Account struct {
	ID             string
	Email          string
	Name           string
	Role           string
	PasswordHash   string
	Deactivated    bool
	LoginAttempts  int
	LoginAttemptAt *time.Time
}

// UserStore is what the local strategy and user deserialization need
// from persistence.
type UserStore interface {
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	AccountByID(ctx context.Context, id string) (*Account, error)
	TrackAttemptedLogin(ctx context.Context, id string) error
	TrackSuccessfulLogin(ctx context.Context, id string) error
}

type noopLogger struct{}

func (noopLogger) Debug(format string, args ...any) {}
func (noopLogger) Info(format string, args ...any)  {}
func (noopLogger) Warn(format string, args ...any)  {}
func (noopLogger) Error(format string, args ...any) {}
