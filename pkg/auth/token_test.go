package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopin/storefront-bff/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "shopin-test"}
}

func TestMintAndParseRoundtrip(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()

	signed, err := MintAccessToken(cfg, time.Now(), time.Hour, AccessTokenPayload{
		UserID: userID,
		Email:  "buyer@example.com",
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, signed)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "buyer@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	signed, err := MintAccessToken(config.JWTConfig{Secret: "test-secret", Issuer: "other"}, time.Now(), time.Hour, AccessTokenPayload{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = ParseAccessToken(testJWTConfig(), signed)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	cfg := testJWTConfig()
	signed, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), time.Hour, AccessTokenPayload{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, signed)
	assert.Error(t, err)
}

func TestMintRequiresUserID(t *testing.T) {
	_, err := MintAccessToken(testJWTConfig(), time.Now(), time.Hour, AccessTokenPayload{})
	assert.Error(t, err)
}
