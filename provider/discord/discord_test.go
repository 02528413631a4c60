package discord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskvine/identity/provider"
)

func TestStrategyAuthCodeURL(t *testing.T) {
	strategy := New(Config{
		ClientID:    "client-id",
		CallbackURL: "https://example.com/discord/verify",
	})

	parsed, err := url.Parse(strategy.AuthCodeURL("state-token"))
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "https://example.com/discord/verify", query.Get("redirect_uri"))
	assert.Equal(t, "state-token", query.Get("state"))
	assert.Equal(t, "code", query.Get("response_type"))

	scope := query.Get("scope")
	assert.Contains(t, scope, "identify")
	assert.Contains(t, scope, "email")
}

func TestStrategyExchangeAndUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			values, err := url.ParseQuery(string(body))
			assert.NoError(t, err)

			assert.Equal(t, "client-id", values.Get("client_id"))
			assert.Equal(t, "auth-code", values.Get("code"))
			assert.Equal(t, "authorization_code", values.Get("grant_type"))

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "token",
				"token_type":   "Bearer",
				"expires_in":   604800,
				"scope":        "identify email",
			})
		case "/users/@me":
			assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":          "123456789012345678",
				"username":    "pepe",
				"global_name": "Pepe Rone",
				"email":       "pepe@example.com",
				"verified":    true,
				"avatar":      "abc123",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	strategy := New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		CallbackURL:  "https://example.com/discord/verify",
		TokenURL:     server.URL + "/token",
		UserInfoURL:  server.URL + "/users/@me",
	})

	token, err := strategy.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "token", token.AccessToken)

	profile, err := strategy.UserInfo(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "discord", profile.Provider)
	assert.Equal(t, "123456789012345678", profile.ProviderUserID)
	assert.Equal(t, "pepe@example.com", profile.Email)
	assert.Equal(t, "Pepe Rone", profile.Name)
	assert.Contains(t, profile.AvatarURL, "123456789012345678/abc123")
}

func TestStrategyExchangeRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	strategy := New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		CallbackURL:  "https://example.com/discord/verify",
		TokenURL:     server.URL,
	})

	_, err := strategy.Exchange(context.Background(), "bad-code")
	require.Error(t, err)
	assert.ErrorContains(t, err, provider.ErrTokenExchangeFailed.Message)
}

func TestStrategyUserInfoFallsBackToUsername(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "987654321098765432",
			"username": "rone",
			"email":    "rone@example.com",
		})
	}))
	defer server.Close()

	strategy := New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		CallbackURL:  "https://example.com/discord/verify",
		UserInfoURL:  server.URL,
	})

	profile, err := strategy.UserInfo(context.Background(), &provider.Token{AccessToken: "token"})
	require.NoError(t, err)
	assert.Equal(t, "rone", profile.Name)
	assert.Equal(t, "", profile.AvatarURL)
}
