package google

import (
	"context"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/goliatone/go-errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/taskvine/identity/provider"
)

const defaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// issuers Google signs ID tokens under
var acceptedIssuers = []string{
	"accounts.google.com",
	"https://accounts.google.com",
}

// MobileConfig holds the mobile ID-token verifier settings. The client
// ID is the native app's, distinct from the web flow's.
type MobileConfig struct {
	ClientID string
	JWKSURL  string
}

// MobileVerifier validates Google ID tokens minted for the native apps.
// Signatures are checked against Google's JWKS, refreshed in the
// background.
type MobileVerifier struct {
	clientID string
	jwks     *keyfunc.JWKS
}

func NewMobileVerifier(cfg MobileConfig) (*MobileVerifier, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("mobile verifier requires a client id", errors.CategoryOperation)
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = defaultJWKSURL
	}

	jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to fetch google jwks")
	}

	return &MobileVerifier{
		clientID: cfg.ClientID,
		jwks:     jwks,
	}, nil
}

type mobileClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verify checks signature, expiry, audience, and issuer, and returns
// the normalized profile the token attests to.
func (v *MobileVerifier) Verify(ctx context.Context, idToken string) (*provider.Profile, error) {
	claims := &mobileClaims{}

	token, err := jwt.ParseWithClaims(idToken, claims, v.jwks.Keyfunc,
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Wrap(err, provider.ErrIDTokenInvalid.Category, provider.ErrIDTokenInvalid.Message).
			WithTextCode(provider.ErrIDTokenInvalid.TextCode)
	}
	if !token.Valid {
		return nil, provider.ErrIDTokenInvalid
	}

	if !issuerAccepted(claims.Issuer) {
		return nil, errors.New("id token issuer not accepted", errors.CategoryAuth).
			WithTextCode(provider.TextCodeIDTokenWrongTarget).
			WithMetadata(map[string]any{"issuer": claims.Issuer})
	}

	return &provider.Profile{
		Provider:       "google",
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		EmailVerified:  claims.EmailVerified,
		Name:           claims.Name,
		AvatarURL:      claims.Picture,
	}, nil
}

// Close stops the background JWKS refresh.
func (v *MobileVerifier) Close() {
	v.jwks.EndBackground()
}

func issuerAccepted(iss string) bool {
	for _, accepted := range acceptedIssuers {
		if iss == accepted {
			return true
		}
	}
	return false
}
