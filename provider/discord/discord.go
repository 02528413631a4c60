// Package discord implements the Discord authorization-code strategy.
package discord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/taskvine/identity/provider"
)

const (
	defaultAuthURL     = "https://discord.com/api/oauth2/authorize"
	defaultTokenURL    = "https://discord.com/api/oauth2/token"
	defaultUserInfoURL = "https://discord.com/api/users/@me"
)

// Config holds the Discord OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL     string
	TokenURL    string
	UserInfoURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the default Discord scopes.
func DefaultScopes() []string {
	return []string{"identify", "email"}
}

// Strategy implements provider.OAuthStrategy for Discord.
type Strategy struct {
	config     Config
	httpClient *http.Client
}

func New(cfg Config) *Strategy {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Strategy{
		config:     cfg,
		httpClient: client,
	}
}

func (s *Strategy) Name() string {
	return "discord"
}

// AuthCodeURL implements provider.OAuthStrategy.
func (s *Strategy) AuthCodeURL(state string) string {
	params := url.Values{
		"client_id":     {s.config.ClientID},
		"redirect_uri":  {s.config.CallbackURL},
		"response_type": {"code"},
		"scope":         {strings.Join(s.config.Scopes, " ")},
		"state":         {state},
	}

	return s.config.AuthURL + "?" + params.Encode()
}

// Exchange implements provider.OAuthStrategy.
func (s *Strategy) Exchange(ctx context.Context, code string) (*provider.Token, error) {
	data := url.Values{
		"client_id":     {s.config.ClientID},
		"client_secret": {s.config.ClientSecret},
		"code":          {code},
		"redirect_uri":  {s.config.CallbackURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, strategyError(provider.ErrTokenExchangeFailed, err, 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, strategyError(provider.ErrTokenExchangeFailed, err, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK || tokenResp.AccessToken == "" {
		return nil, strategyError(provider.ErrTokenExchangeFailed, nil, resp.StatusCode)
	}

	expiresAt := time.Time{}
	if tokenResp.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}

	return &provider.Token{
		AccessToken:  tokenResp.AccessToken,
		TokenType:    tokenResp.TokenType,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresAt:    expiresAt,
		Scopes:       strings.Fields(tokenResp.Scope),
	}, nil
}

// UserInfo implements provider.OAuthStrategy. The provider user ID is
// the snowflake later checked against guild membership.
func (s *Strategy) UserInfo(ctx context.Context, token *provider.Token) (*provider.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, strategyError(provider.ErrUserInfoFailed, err, 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, strategyError(provider.ErrUserInfoFailed, nil, resp.StatusCode)
	}

	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, strategyError(provider.ErrUserInfoFailed, err, resp.StatusCode)
	}

	name := info.GlobalName
	if name == "" {
		name = info.Username
	}

	return &provider.Profile{
		Provider:       s.Name(),
		ProviderUserID: info.ID,
		Email:          info.Email,
		EmailVerified:  info.Verified,
		Name:           name,
		AvatarURL:      avatarURL(info),
	}, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

type userInfo struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Email      string `json:"email"`
	Verified   bool   `json:"verified"`
	Avatar     string `json:"avatar"`
}

func avatarURL(info userInfo) string {
	if info.Avatar == "" {
		return ""
	}
	return "https://cdn.discordapp.com/avatars/" + info.ID + "/" + info.Avatar + ".png"
}

func strategyError(base *errors.Error, err error, status int) error {
	meta := map[string]any{"provider": "discord", "status": status}
	if err != nil {
		return errors.Wrap(err, base.Category, base.Message).
			WithTextCode(base.TextCode).
			WithMetadata(meta)
	}
	return errors.New(base.Message, base.Category).
		WithTextCode(base.TextCode).
		WithMetadata(meta)
}
