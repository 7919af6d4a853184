package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		Secret:   "test-secret-key-12345678901234567890123456789012",
		Issuer:   "uboard-api",
		Audience: "uboard-client",
		TTL:      time.Hour,
	}
}

func TestAuthRequired(t *testing.T) {
	jc := testJWTConfig()
	app := fiber.New()
	app.Get("/test", AuthRequired(jc, false), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": UserID(c)})
	})

	valid, err := jc.IssueToken("user-123", time.Now())
	require.NoError(t, err)
	expired, err := jc.IssueToken("user-123", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	otherAudience := jc
	otherAudience.Audience = "someone-else"
	wrongAud, err := otherAudience.IssueToken("user-123", time.Now())
	require.NoError(t, err)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    jc.Issuer,
		Audience:  jwt.ClaimStrings{jc.Audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(jc.Secret))
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedUserID string
	}{
		{"Happy Path", "Bearer " + valid, http.StatusOK, "user-123"},
		{"Missing Header", "", http.StatusUnauthorized, ""},
		{"Invalid Format", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, ""},
		{"Expired Token", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"Wrong Audience", "Bearer " + wrongAud, http.StatusUnauthorized, ""},
		{"Missing Subject", "Bearer " + noSub, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.expectedUserID, body["userID"])
			}
		})
	}
}

func TestAuthRequired_QueryToken(t *testing.T) {
	jc := testJWTConfig()
	token, err := jc.IssueToken("ws-user", time.Now())
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/ws", AuthRequired(jc, true), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})
	app.Get("/api", AuthRequired(jc, false), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api?token="+token, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
