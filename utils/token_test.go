package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xfriends/config"
)

func withConfig(t *testing.T, cfg *config.Config) {
	prev := config.Cfg
	config.Cfg = cfg
	t.Cleanup(func() { config.Cfg = prev })
}

func TestTokenRoundTrip(t *testing.T) {
	withConfig(t, &config.Config{JWTSecret: "secret", TokenTTL: time.Hour})

	token, err := GenerateToken("user-42")
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.UserID)
	assert.Equal(t, "user-42", claims.Subject)
}

func TestParseTokenRejects(t *testing.T) {
	withConfig(t, &config.Config{JWTSecret: "secret", TokenTTL: -time.Minute})
	expired, err := GenerateToken("user-42")
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	withConfig(t, &config.Config{JWTSecret: "other", TokenTTL: time.Hour})
	foreign, err := GenerateToken("user-42")
	require.NoError(t, err)

	withConfig(t, &config.Config{JWTSecret: "secret", TokenTTL: time.Hour})
	_, err = ParseToken(foreign)
	assert.Error(t, err)
}

func TestGenerateUUID(t *testing.T) {
	a, b := GenerateUUID(), GenerateUUID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
