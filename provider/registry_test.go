package provider_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskvine/identity/provider"
)

type stubStrategy struct{ name string }

func (s stubStrategy) Name() string              { return s.name }
func (s stubStrategy) AuthCodeURL(string) string { return "https://example.com/auth" }
func (s stubStrategy) Exchange(ctx context.Context, code string) (*provider.Token, error) {
	return &provider.Token{AccessToken: "tok"}, nil
}
func (s stubStrategy) UserInfo(ctx context.Context, token *provider.Token) (*provider.Profile, error) {
	return &provider.Profile{Provider: s.name}, nil
}

func TestRegistryRequiresStore(t *testing.T) {
	_, err := provider.NewRegistry(nil)
	require.Error(t, err)
}

func TestRegistryInstallsConfiguredStrategies(t *testing.T) {
	registry, err := provider.NewRegistry(newFakeStore())
	require.NoError(t, err)

	registry.RegisterIfConfigured("google", provider.Credentials{
		ClientID:     "id",
		ClientSecret: "secret",
		CallbackURL:  "https://app.example.com/google/verify",
	}, func(provider.Credentials) provider.OAuthStrategy {
		return stubStrategy{name: "google"}
	})

	s, err := registry.Strategy("google")
	require.NoError(t, err)
	assert.Equal(t, "google", s.Name())
}

func TestRegistrySkipsAbsentCredentials(t *testing.T) {
	registry, err := provider.NewRegistry(newFakeStore())
	require.NoError(t, err)

	built := false
	registry.RegisterIfConfigured("discord", provider.Credentials{}, func(provider.Credentials) provider.OAuthStrategy {
		built = true
		return stubStrategy{name: "discord"}
	})

	assert.False(t, built)
	_, err = registry.Strategy("discord")
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrStrategyNotFound))
	assert.Empty(t, registry.Names())
}

func TestRegistrySerializeDeserializeRoundTrip(t *testing.T) {
	account := &provider.Account{ID: "u42", Email: "pepe@example.com"}
	registry, err := provider.NewRegistry(newFakeStore(account))
	require.NoError(t, err)

	id := registry.SerializeUser(account)
	assert.Equal(t, "u42", id)

	got, err := registry.DeserializeUser(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, account.Email, got.Email)

	// idempotent
	again, err := registry.DeserializeUser(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestRegistrySerializeNilAccount(t *testing.T) {
	registry, err := provider.NewRegistry(newFakeStore())
	require.NoError(t, err)

	assert.Equal(t, "", registry.SerializeUser(nil))

	_, err = registry.DeserializeUser(context.Background(), "")
	require.Error(t, err)
}
