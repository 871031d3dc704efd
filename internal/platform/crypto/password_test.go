package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		want     error
	}{
		{"Test123!@#", nil},
		{"SecureP@ss1", nil},
		{"Str0ng#Pass", nil},
		{"Test1!", ErrPasswordTooShort},
		{"Abc12", ErrPasswordTooShort},
		{"test123!@#", ErrPasswordNoUpper},
		{"TEST123!@#", ErrPasswordNoLower},
		{"TestPass!@#", ErrPasswordNoNumber},
		{"TestPass123", ErrPasswordNoSpecialChar},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidatePasswordStrength(tt.password))
		})
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Librar1an!")
	require.NoError(t, err)
	assert.NotEqual(t, "Librar1an!", hash)

	assert.True(t, VerifyPassword(hash, "Librar1an!"))
	assert.False(t, VerifyPassword(hash, "librar1an!"))
	assert.False(t, VerifyPassword("not-a-hash", "Librar1an!"))
}
