package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareRecipientsDeduplicatesCaseInsensitively(t *testing.T) {
	got := prepareRecipients([]string{
		"Pepe@Example.com",
		"pepe@example.com",
		"rone@example.com",
		" PEPE@EXAMPLE.COM ",
	}, nil)

	assert.Equal(t, []string{"Pepe@Example.com", "rone@example.com"}, got)
}

func TestPrepareRecipientsDropsSuppressed(t *testing.T) {
	got := prepareRecipients(
		[]string{"pepe@example.com", "bounced@example.com", "rone@example.com"},
		[]string{"Bounced@Example.com"},
	)

	assert.Equal(t, []string{"pepe@example.com", "rone@example.com"}, got)
}

func TestPrepareRecipientsDropsBlanks(t *testing.T) {
	got := prepareRecipients([]string{"", "  ", "pepe@example.com"}, nil)
	assert.Equal(t, []string{"pepe@example.com"}, got)
}

func TestNoopSwallowsMessages(t *testing.T) {
	n := NewNoop(nil)
	err := n.Send(context.Background(), Message{
		Subject:    "hi",
		Recipients: []string{"pepe@example.com"},
	})
	require.NoError(t, err)
}

func TestNewSMTPRequiresHostAndFrom(t *testing.T) {
	_, err := NewSMTP(Config{}, nil)
	require.Error(t, err)

	_, err = NewSMTP(Config{Host: "smtp.example.com"}, nil)
	require.Error(t, err)

	s, err := NewSMTP(Config{Host: "smtp.example.com", From: "no-reply@example.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 587, s.config.Port)
}
