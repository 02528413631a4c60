package provider

import (
	"context"

	"github.com/goliatone/go-errors"
)

// Registry holds the strategies installed at startup. The local
// strategy is mandatory; OAuth strategies install only when their
// credentials are present.
type Registry struct {
	local      *Local
	strategies map[string]OAuthStrategy
	logger     Logger
}

type RegistryOption func(*Registry)

func WithLogger(logger Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry builds a registry around the given user store. The store
// backs both local login and user deserialization, so it cannot be nil.
func NewRegistry(store UserStore, opts ...RegistryOption) (*Registry, error) {
	if store == nil {
		return nil, errors.New("provider registry requires a user store", errors.CategoryOperation)
	}

	r := &Registry{
		strategies: map[string]OAuthStrategy{},
		logger:     noopLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	r.local = NewLocal(store, r.logger)

	return r, nil
}

// Register installs an OAuth strategy unconditionally.
func (r *Registry) Register(s OAuthStrategy) {
	if s == nil {
		return
	}
	r.strategies[s.Name()] = s
	r.logger.Info("identity provider registered name=%s", s.Name())
}

// RegisterIfConfigured installs the strategy built from creds when the
// registration is complete, and logs a soft skip otherwise. A missing
// optional provider is a deployment choice, not an error.
func (r *Registry) RegisterIfConfigured(name string, creds Credentials, build func(Credentials) OAuthStrategy) {
	if !creds.Present() {
		r.logger.Info("identity provider skipped, credentials absent name=%s", name)
		return
	}
	r.Register(build(creds))
}

// Strategy looks up an installed OAuth strategy by name.
func (r *Registry) Strategy(name string) (OAuthStrategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, errors.Wrap(ErrStrategyNotFound, ErrStrategyNotFound.Category, ErrStrategyNotFound.Message).
			WithTextCode(ErrStrategyNotFound.TextCode).
			WithMetadata(map[string]any{"strategy": name})
	}
	return s, nil
}

// Names lists the installed OAuth strategies.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		out = append(out, name)
	}
	return out
}

// Local returns the mandatory email/password strategy.
func (r *Registry) Local() *Local {
	return r.local
}

// SerializeUser reduces an account to the value stored in the session.
func (r *Registry) SerializeUser(a *Account) string {
	if a == nil {
		return ""
	}
	return a.ID
}

// DeserializeUser resolves a session value back to an account with one
// store call. Safe to call repeatedly with the same ID.
func (r *Registry) DeserializeUser(ctx context.Context, id string) (*Account, error) {
	if id == "" {
		return nil, errors.New("empty user id", errors.CategoryBadInput)
	}
	return r.local.store.AccountByID(ctx, id)
}
