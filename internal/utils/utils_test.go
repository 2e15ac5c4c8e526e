package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePaymentCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GeneratePaymentCode()
		require.NoError(t, err)
		assert.Len(t, code, 32) // 24 bytes, unpadded base64
		assert.NotContains(t, code, "+")
		assert.NotContains(t, code, "/")
		assert.False(t, seen[code], "duplicate code generated")
		seen[code] = true
	}
}

func TestHashPaymentCode(t *testing.T) {
	key := []byte("test-key")

	first, err := HashPaymentCode(key, "abc")
	require.NoError(t, err)
	assert.Len(t, first, 64)

	again, err := HashPaymentCode(key, "abc")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	other, err := HashPaymentCode(key, "abd")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)

	otherKey, err := HashPaymentCode([]byte("another-key"), "abc")
	require.NoError(t, err)
	assert.NotEqual(t, first, otherKey)

	_, err = HashPaymentCode(make([]byte, 65), "abc")
	assert.Error(t, err)
}

func TestGenerateServiceSecrets(t *testing.T) {
	jwtSecret, qrKey, err := GenerateServiceSecrets()
	require.NoError(t, err)
	assert.Len(t, jwtSecret, 64)
	assert.Len(t, qrKey, 64)
	assert.NotEqual(t, jwtSecret, qrKey)
}

func TestGetRealIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		headers  map[string]string
		remote   string
		expected string
	}{
		{"X-Real-IP wins", map[string]string{"X-Real-IP": "203.0.113.7", "X-Forwarded-For": "198.51.100.1"}, "10.0.0.1:1234", "203.0.113.7"},
		{"Private X-Real-IP ignored", map[string]string{"X-Real-IP": "10.1.1.1", "X-Forwarded-For": "198.51.100.1"}, "10.0.0.1:1234", "198.51.100.1"},
		{"First public forwarded address", map[string]string{"X-Forwarded-For": "192.168.1.5, 198.51.100.2, 198.51.100.3"}, "10.0.0.1:1234", "198.51.100.2"},
		{"All private forwarded", map[string]string{"X-Forwarded-For": "192.168.1.5, 10.0.0.9"}, "10.0.0.1:1234", "192.168.1.5"},
		{"Direct connection", nil, "198.51.100.9:5555", "198.51.100.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			c.Request = req

			assert.Equal(t, tt.expected, GetRealIP(c))
		})
	}
}

func TestIsLocalhost(t *testing.T) {
	assert.True(t, IsLocalhost("127.0.0.1"))
	assert.True(t, IsLocalhost("::1"))
	assert.False(t, IsLocalhost("203.0.113.7"))
}

func TestParseUserAgent(t *testing.T) {
	unknown := ParseUserAgent("")
	assert.Equal(t, "unknown", unknown.DeviceType)
	assert.Equal(t, "Unknown", unknown.Browser)

	iphone := ParseUserAgent("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
	assert.Equal(t, "mobile", iphone.DeviceType)
	assert.Equal(t, "ios", iphone.Platform)
	assert.False(t, iphone.IsBot)

	desktop := ParseUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	assert.Equal(t, "desktop", desktop.DeviceType)
	assert.Equal(t, "windows", desktop.Platform)
	assert.Equal(t, "Chrome", desktop.Browser)

	bot := ParseUserAgent("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	assert.True(t, bot.IsBot)
}
