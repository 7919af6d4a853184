// Package middleware provides HTTP middleware shared by the API routes.
package middleware

import (
	"errors"
	"strings"
	"time"

	"uboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// LocalUserID is the fiber.Ctx locals key holding the authenticated user id.
const LocalUserID = "userID"

// JWTConfig configures token issuing and validation.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// IssueToken signs an HS256 token whose subject is userID.
func (c JWTConfig) IssueToken(userID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    c.Issuer,
		Audience:  jwt.ClaimStrings{c.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.Secret))
}

// ParseToken validates signature, issuer, audience and expiry and returns the subject.
func (c JWTConfig) ParseToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(c.Secret), nil
	},
		jwt.WithIssuer(c.Issuer),
		jwt.WithAudience(c.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", errors.New("invalid or expired token")
	}
	if claims.Subject == "" {
		return "", errors.New("invalid token structure - missing subject")
	}
	return claims.Subject, nil
}

// AuthRequired enforces a bearer token. When allowQuery is set the token may
// also arrive as ?token=, which browsers need for websocket upgrades.
func AuthRequired(jc JWTConfig, allowQuery bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := ""
		if allowQuery {
			token = c.Query("token")
		}
		if token == "" {
			header := c.Get(fiber.HeaderAuthorization)
			if header == "" {
				return unauthorized(c, "Authorization header required")
			}
			parts := strings.Split(header, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return unauthorized(c, "Invalid authorization header format")
			}
			token = parts[1]
		}

		userID, err := jc.ParseToken(token)
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals(LocalUserID, userID)
		c.SetUserContext(WithUserID(c.UserContext(), userID))
		return c.Next()
	}
}

// UserID returns the authenticated user id stored by AuthRequired.
func UserID(c *fiber.Ctx) string {
	uid, _ := c.Locals(LocalUserID).(string)
	return uid
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
}
