// Package google implements the Google identity strategies: the web
// authorization-code flow and the mobile ID-token verifier.
package google

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
	defaultAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// Config holds the Google OAuth client registration.
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

// DefaultScopes returns the default Google scopes.
func DefaultScopes() []string {
	return []string{"openid", "email", "profile"}
}

// Strategy implements provider.OAuthStrategy for Google.
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
	return "google"
}

// AuthCodeURL implements provider.OAuthStrategy.
func (s *Strategy) AuthCodeURL(state string) string {
	params := url.Values{
		"client_id":     {s.config.ClientID},
		"redirect_uri":  {s.config.CallbackURL},
		"response_type": {"code"},
		"scope":         {strings.Join(s.config.Scopes, " ")},
		"state":         {state},
		"access_type":   {"offline"},
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
		return nil, exchangeError(err, 0, "")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, exchangeError(err, resp.StatusCode, "failed to decode token response")
	}

	if resp.StatusCode != http.StatusOK || tokenResp.Error != "" {
		return nil, exchangeError(nil, resp.StatusCode, tokenResp.ErrorDesc)
	}
	if tokenResp.AccessToken == "" {
		return nil, exchangeError(nil, resp.StatusCode, "missing access token")
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

// UserInfo implements provider.OAuthStrategy.
func (s *Strategy) UserInfo(ctx context.Context, token *provider.Token) (*provider.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, userInfoError(err, 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, userInfoError(nil, resp.StatusCode)
	}

	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, userInfoError(err, resp.StatusCode)
	}

	return &provider.Profile{
		Provider:       s.Name(),
		ProviderUserID: info.Sub,
		Email:          info.Email,
		EmailVerified:  info.EmailVerified,
		Name:           info.Name,
		AvatarURL:      info.Picture,
	}, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	IDToken      string `json:"id_token"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

type userInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func exchangeError(err error, status int, desc string) error {
	meta := map[string]any{"provider": "google", "status": status}
	if desc != "" {
		meta["description"] = desc
	}
	base := provider.ErrTokenExchangeFailed
	if err != nil {
		return errors.Wrap(err, base.Category, base.Message).
			WithTextCode(base.TextCode).
			WithMetadata(meta)
	}
	return errors.New(base.Message, base.Category).
		WithTextCode(base.TextCode).
		WithMetadata(meta)
}

func userInfoError(err error, status int) error {
	meta := map[string]any{"provider": "google", "status": status}
	base := provider.ErrUserInfoFailed
	if err != nil {
		return errors.Wrap(err, base.Category, base.Message).
			WithTextCode(base.TextCode).
			WithMetadata(meta)
	}
	return errors.New(base.Message, base.Category).
		WithTextCode(base.TextCode).
		WithMetadata(meta)
}
