package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenPurpose binds a token to the single flow it may be used for.
type TokenPurpose = string

const (
	// PurposeEmailVerification covers GET /verify links
	PurposeEmailVerification TokenPurpose = "email-verification"
	// PurposePasswordReset covers password reset links
	PurposePasswordReset TokenPurpose = "password-reset"
)

// PurposeClaims are the claims we mint for email links.
type PurposeClaims struct {
	jwt.RegisteredClaims
	Purpose TokenPurpose `json:"purpose"`
	Email   string       `json:"email,omitempty"`
}

// TokenService mints and validates single-purpose tokens carried in
// verification and password reset links.
type TokenService interface {
	Mint(userID uuid.UUID, email string, purpose TokenPurpose, ttl time.Duration) (string, error)
	Validate(token string, purpose TokenPurpose) (*PurposeClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	issuer     string
	logger     Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, issuer string, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		issuer:     issuer,
		logger:     logger,
	}
}

// Mint creates a signed token bound to a user and purpose
func (ts *TokenServiceImpl) Mint(userID uuid.UUID, email string, purpose TokenPurpose, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &PurposeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    ts.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Purpose: purpose,
		Email:   email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signedString, nil
}

// Validate parses a token string and checks that it was minted for the
// expected purpose
func (ts *TokenServiceImpl) Validate(tokenString string, purpose TokenPurpose) (*PurposeClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &PurposeClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*PurposeClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService validate could not decode claims")
		return nil, ErrTokenMalformed
	}

	if claims.Purpose != purpose {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
