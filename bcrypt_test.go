package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/taskvine/identity"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true, // bcrypt can hash empty strings!
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := identity.HashPassword(tt.password)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, hash)

			err = identity.ComparePasswordAndHash(tt.password, hash)
			assert.NoError(t, err)
		})
	}
}

func TestComparePasswordAndHashMismatch(t *testing.T) {
	hash, err := identity.HashPassword("the-right-password")
	assert.NoError(t, err)

	err = identity.ComparePasswordAndHash("the-wrong-password", hash)
	assert.ErrorIs(t, err, identity.ErrMismatchedHashAndPassword)
}

func TestRandomPasswordHash(t *testing.T) {
	hash := identity.RandomPasswordHash()
	assert.NotEmpty(t, hash)

	// random content, never a fixed credential
	assert.NotEqual(t, hash, identity.RandomPasswordHash())
}
