package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/goliatone/go-errors"
)

const signedPrefix = "s:"

// ErrNoSecret is returned when signing is attempted without a secret.
var ErrNoSecret = errors.New("session secret is empty", errors.CategoryOperation).
	WithTextCode("session_no_secret")

// ErrBadSignature is returned when a signed value fails verification.
var ErrBadSignature = errors.New("session cookie signature mismatch", errors.CategoryAuth).
	WithTextCode("session_bad_signature").
	WithCode(errors.CodeUnauthorized)

// Sign produces the transport form of a session id: "s:<id>.<sig>" where
// sig is the base64 HMAC-SHA256 of the id under the shared secret, with
// padding stripped. Cookies signed this way round-trip with clients of the
// original cookie-signature scheme.
func Sign(sid, secret string) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(sid))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	sig = strings.TrimRight(sig, "=")

	return signedPrefix + sid + "." + sig, nil
}

// Unsign verifies a transport value and recovers the raw session id.
func Unsign(value, secret string) (string, error) {
	if !strings.HasPrefix(value, signedPrefix) {
		return "", ErrBadSignature
	}

	raw := value[len(signedPrefix):]
	dot := strings.LastIndexByte(raw, '.')
	if dot < 0 {
		return "", ErrBadSignature
	}

	sid := raw[:dot]
	expected, err := Sign(sid, secret)
	if err != nil {
		return "", err
	}

	if subtle.ConstantTimeCompare([]byte(value), []byte(expected)) != 1 {
		return "", ErrBadSignature
	}

	return sid, nil
}
