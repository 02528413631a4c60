package identity_test

import (
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/taskvine/identity"
)

func TestSentinelErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		err      *goerrors.Error
		category goerrors.Category
		textCode string
	}{
		{"identity not found", identity.ErrIdentityNotFound, goerrors.CategoryNotFound, identity.TextCodeIdentityNotFound},
		{"invalid credentials", identity.ErrInvalidCredentials, goerrors.CategoryAuth, identity.TextCodeInvalidCredentials},
		{"account locked", identity.ErrAccountLocked, goerrors.CategoryAuth, identity.TextCodeAccountLocked},
		{"account deactivated", identity.ErrAccountDeactivated, goerrors.CategoryAuth, identity.TextCodeAccountDeactivated},
		{"token expired", identity.ErrTokenExpired, goerrors.CategoryAuth, identity.TextCodeTokenExpired},
		{"token malformed", identity.ErrTokenMalformed, goerrors.CategoryBadInput, identity.TextCodeTokenMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.textCode, tt.err.TextCode)
		})
	}
}

func TestSentinelErrorsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("request failed: %w", identity.ErrTokenExpired)

	var e *goerrors.Error
	assert.True(t, goerrors.As(wrapped, &e))
	assert.Equal(t, identity.TextCodeTokenExpired, e.TextCode)
}

func TestIsNotFoundMatchesIdentityNotFound(t *testing.T) {
	assert.True(t, goerrors.IsNotFound(identity.ErrIdentityNotFound))
	assert.False(t, goerrors.IsNotFound(identity.ErrInvalidCredentials))
}
