package utils

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cppla/yatube/config"
)

func TestMain(m *testing.M) {
	config.Override(config.AppConfig{JWTSecret: "test-secret", LogLevel: "silent"})
	passwordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(7, "leo", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "leo", claims.Username)
	assert.Equal(t, "7", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), TokenExpiry(claims), 2*time.Second)

	expired, err := GenerateToken(7, "leo", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	_, err = ParseToken(token + "x")
	assert.Error(t, err)
}

func TestTokenBlacklist(t *testing.T) {
	token, err := GenerateToken(8, "anna", time.Hour)
	require.NoError(t, err)
	assert.False(t, IsTokenBlacklisted(token))

	BlacklistToken(token, time.Now().Add(time.Hour))
	assert.True(t, IsTokenBlacklisted(token))

	BlacklistToken("already-expired", time.Now().Add(-time.Second))
	assert.False(t, IsTokenBlacklisted("already-expired"))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("war-and-peace")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "war-and-peace"))
	assert.False(t, CheckPassword(hash, "anna-karenina"))
}

func TestSanitizeHTML(t *testing.T) {
	assert.Equal(t, "hello", SanitizeHTML("  hello  "))
	assert.Equal(t, "", SanitizeHTML("<script>alert(1)</script>"))
	assert.Equal(t, "<b>bold</b>", SanitizeHTML("<b>bold</b>"))
	assert.Equal(t, "Tom &amp; Jerry", SanitizeHTML("Tom & Jerry"))
	assert.Equal(t, "Тестовый Текст", SanitizeHTML("Тестовый Текст"))
}

func TestCaptcha(t *testing.T) {
	id, b64, err := GenerateCaptcha()
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Contains(t, b64, "data:image/png;base64,")
	assert.False(t, VerifyCaptcha(id, ""))
	assert.False(t, VerifyCaptcha("", "12345"))
}

func TestRender(t *testing.T) {
	b, err := Render(map[string]int{"n": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":0,"message":"success","data":{"n":1}}`, string(b))
}
