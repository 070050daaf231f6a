package auth

import (
	"testing"
	"time"

	"github.com/academy/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Enabled:               true,
		Secret:                testSecret,
		Issuer:                "academy-backend",
		AccessTokenExpiration: 15 * time.Minute,
	})
}

func signClaims(t *testing.T, claims *Claims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(tenantID, userID string) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "academy-backend",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		TenantID:  tenantID,
		UserID:    userID,
		TokenType: TokenTypeAccess,
	}
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	svc := newTestJWTService()
	tenantID, userID := uuid.New(), uuid.New()

	token, expiresAt, err := svc.GenerateAccessToken(tenantID, userID, "secretary")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	gotTenant, err := claims.TenantUUID()
	require.NoError(t, err)
	gotUser, err := claims.UserUUID()
	require.NoError(t, err)
	assert.Equal(t, tenantID, gotTenant)
	assert.Equal(t, userID, gotUser)
	assert.Equal(t, "secretary", claims.Username)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestValidateAccessToken_Errors(t *testing.T) {
	svc := newTestJWTService()
	tenant, user := uuid.NewString(), uuid.NewString()

	expired := validClaims(tenant, user)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	notYet := validClaims(tenant, user)
	notYet.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour))

	refresh := validClaims(tenant, user)
	refresh.TokenType = "refresh"

	otherIssuer := validClaims(tenant, user)
	otherIssuer.Issuer = "someone-else"

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-token", ErrInvalidToken},
		{"wrong secret", signClaims(t, validClaims(tenant, user), "another-secret-that-is-32-chars!!"), ErrInvalidToken},
		{"expired", signClaims(t, expired, testSecret), ErrExpiredToken},
		{"not yet valid", signClaims(t, notYet, testSecret), ErrTokenNotYetValid},
		{"refresh token", signClaims(t, refresh, testSecret), ErrInvalidTokenType},
		{"wrong issuer", signClaims(t, otherIssuer, testSecret), ErrInvalidToken},
		{"missing tenant", signClaims(t, validClaims("", user), testSecret), ErrMissingTenantID},
		{"missing user", signClaims(t, validClaims(tenant, ""), testSecret), ErrMissingUserID},
		{"tenant not a uuid", signClaims(t, validClaims("school-1", user), testSecret), ErrInvalidClaims},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateAccessToken_RejectsNoneAlgorithm(t *testing.T) {
	svc := newTestJWTService()
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims(uuid.NewString(), uuid.NewString())).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
