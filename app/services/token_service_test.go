// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService() (TokenService, error) {
	return NewTokenService(
		15*time.Minute,
		7*24*time.Hour,
		"test-issuer",
		"test-audience",
		false, // useRSAKeys
		"",    // privateKeyPEM
		"",    // publicKeyPEM
		"test-secret-key-for-jwt-signing-32-chars", // secretKey
	)
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		useRSAKeys  bool
		secretKey   string
		expectError bool
	}{
		{
			name:        "valid symmetric key configuration",
			useRSAKeys:  false,
			secretKey:   "test-secret-key-for-jwt-signing-32-chars",
			expectError: false,
		},
		{
			name:        "missing secret key",
			useRSAKeys:  false,
			secretKey:   "",
			expectError: true,
		},
		{
			name:        "rsa without keys",
			useRSAKeys:  true,
			secretKey:   "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewTokenService(
				15*time.Minute,
				7*24*time.Hour,
				"test-issuer",
				"test-audience",
				tt.useRSAKeys,
				"", "",
				tt.secretKey,
			)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, service)
			}
		})
	}
}

func TestGenerateTokens(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	tests := []struct {
		name     string
		tenantID uint
		userID   uint
		role     string
	}{
		{name: "owner tokens", tenantID: 1, userID: 10, role: "owner"},
		{name: "agent tokens", tenantID: 7, userID: 42, role: "agent"},
		{name: "large identifiers", tenantID: 999999999, userID: 999999999, role: "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accessToken, refreshToken, err := service.GenerateTokens(tt.tenantID, tt.userID, tt.role)
			require.NoError(t, err)
			assert.NotEmpty(t, accessToken)
			assert.NotEmpty(t, refreshToken)
			assert.NotEqual(t, accessToken, refreshToken)

			claims, err := service.ValidateToken(accessToken)
			require.NoError(t, err)
			assert.Equal(t, tt.tenantID, claims.TenantID)
			assert.Equal(t, tt.userID, claims.UserID)
			assert.Equal(t, tt.role, claims.Role)
			assert.Equal(t, "access", claims.TokenType)
			assert.NotEmpty(t, claims.TokenID)

			refreshClaims, err := service.ValidateToken(refreshToken)
			require.NoError(t, err)
			assert.Equal(t, "refresh", refreshClaims.TokenType)
			assert.NotEqual(t, claims.TokenID, refreshClaims.TokenID)
		})
	}
}

func TestValidateToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	accessToken, _, err := service.GenerateTokens(1, 10, "owner")
	require.NoError(t, err)

	tests := []struct {
		name        string
		token       string
		expectError error
	}{
		{name: "valid access token", token: accessToken, expectError: nil},
		{name: "garbage token", token: "not-a-jwt", expectError: ErrTokenInvalid},
		{name: "empty token", token: "", expectError: ErrTokenInvalid},
		{
			name:        "tampered token",
			token:       accessToken[:len(accessToken)-4] + "xxxx",
			expectError: ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token)
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, claims)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, claims)
			}
		})
	}
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	other, err := NewTokenService(
		15*time.Minute,
		7*24*time.Hour,
		"test-issuer",
		"test-audience",
		false,
		"", "",
		"a-completely-different-signing-key-here",
	)
	require.NoError(t, err)

	accessToken, _, err := other.GenerateTokens(1, 10, "owner")
	require.NoError(t, err)

	_, err = service.ValidateToken(accessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestExpiredTokenRejected(t *testing.T) {
	// TTL in the past so the token is born expired
	service, err := NewTokenService(
		-1*time.Minute,
		-1*time.Minute,
		"test-issuer",
		"test-audience",
		false,
		"", "",
		"test-secret-key-for-jwt-signing-32-chars",
	)
	require.NoError(t, err)

	accessToken, _, err := service.GenerateTokens(1, 10, "owner")
	require.NoError(t, err)

	_, err = service.ValidateToken(accessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateTokens(3, 77, "agent")
	require.NoError(t, err)

	t.Run("valid refresh token", func(t *testing.T) {
		newAccess, newRefresh, err := service.RefreshToken(refreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, newAccess)
		assert.NotEmpty(t, newRefresh)
		assert.NotEqual(t, refreshToken, newRefresh)

		// The rotated pair carries the same identity
		claims, err := service.ValidateToken(newAccess)
		require.NoError(t, err)
		assert.Equal(t, uint(3), claims.TenantID)
		assert.Equal(t, uint(77), claims.UserID)
		assert.Equal(t, "agent", claims.Role)
	})

	t.Run("access token cannot refresh", func(t *testing.T) {
		_, _, err := service.RefreshToken(accessToken)
		assert.Error(t, err)
	})

	t.Run("garbage token cannot refresh", func(t *testing.T) {
		_, _, err := service.RefreshToken("not-a-jwt")
		assert.Error(t, err)
	})
}

func TestRevokeToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateTokens(1, 10, "owner")
	require.NoError(t, err)

	t.Run("revoked token fails validation", func(t *testing.T) {
		require.NoError(t, service.RevokeToken(accessToken))

		_, err := service.ValidateToken(accessToken)
		assert.ErrorIs(t, err, ErrTokenRevoked)
		assert.True(t, service.IsTokenRevoked(accessToken))
	})

	t.Run("revocation is per token", func(t *testing.T) {
		_, err := service.ValidateToken(refreshToken)
		assert.NoError(t, err)
		assert.False(t, service.IsTokenRevoked(refreshToken))
	})

	t.Run("revoking garbage fails", func(t *testing.T) {
		assert.Error(t, service.RevokeToken("not-a-jwt"))
		assert.True(t, service.IsTokenRevoked("not-a-jwt"))
	})
}
