package utils

import (
	"discuss/config"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{JWTSecretKey: "secret", JWTIssuer: "discuss_test", JWTExpirationTime: time.Hour}
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	token, err := GenerateToken(cfg, 42, "alice")
	require.NoError(t, err)

	claims, err := ValidateToken(cfg, token)
	require.NoError(t, err)
	id, err := claims.Viewer()
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.ID)
	assert.InDelta(t, time.Hour.Seconds(), claims.Remaining(time.Now()).Seconds(), 5)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken(testConfig(), 1, "alice")
	require.NoError(t, err)

	other := testConfig()
	other.JWTSecretKey = "other"
	_, err = ValidateToken(other, token)
	assert.Error(t, err)

	// 客户端不校验签名也能读出 ID
	claims, err := ParseUnverified(token)
	require.NoError(t, err)
	id, err := claims.Viewer()
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)
}

func TestValidateToken_Expired(t *testing.T) {
	cfg := testConfig()
	cfg.JWTExpirationTime = -time.Minute
	token, err := GenerateToken(cfg, 1, "alice")
	require.NoError(t, err)

	_, err = ValidateToken(cfg, token)
	assert.Error(t, err)
}

func TestParseUnverified_Garbage(t *testing.T) {
	_, err := ParseUnverified("not-a-token")
	assert.Error(t, err)
}
