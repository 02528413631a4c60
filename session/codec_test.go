package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/taskvine/identity/session"
)

func TestSignRoundTrip(t *testing.T) {
	signed, err := session.Sign("abc123", "keyboard cat")
	assert.NoError(t, err)
	assert.Contains(t, signed, "s:abc123.")

	sid, err := session.Unsign(signed, "keyboard cat")
	assert.NoError(t, err)
	assert.Equal(t, "abc123", sid)
}

func TestSignEmptySecret(t *testing.T) {
	_, err := session.Sign("abc123", "")
	assert.ErrorIs(t, err, session.ErrNoSecret)
}

func TestUnsignRejectsTamperedValue(t *testing.T) {
	signed, err := session.Sign("abc123", "keyboard cat")
	assert.NoError(t, err)

	_, err = session.Unsign(signed+"x", "keyboard cat")
	assert.Error(t, err)
}

func TestUnsignRejectsWrongSecret(t *testing.T) {
	signed, err := session.Sign("abc123", "keyboard cat")
	assert.NoError(t, err)

	_, err = session.Unsign(signed, "other secret")
	assert.ErrorIs(t, err, session.ErrBadSignature)
}

func TestUnsignRejectsUnsignedValue(t *testing.T) {
	for _, value := range []string{"", "abc123", "s:abc123", "plain.cookie"} {
		_, err := session.Unsign(value, "keyboard cat")
		assert.Error(t, err, "value %q should not verify", value)
	}
}
