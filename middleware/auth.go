package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// TokenCookie is the cookie the login handler sets.
const TokenCookie = "jwt"

// TokenTTL is how long a login stays valid.
const TokenTTL = 24 * time.Hour

// TechnicianKey is the Locals key holding the authenticated technician id.
const TechnicianKey = "technicianId"

// IssueToken signs a token for technicianID.
func IssueToken(secret, technicianID string, now time.Time) (string, time.Time, error) {
	expires := now.Add(TokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   technicianID,
		Issuer:    "maintenance",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	return signed, expires, err
}

func tokenFrom(c *fiber.Ctx) string {
	if cookie := c.Cookies(TokenCookie); cookie != "" {
		return cookie
	}
	if auth := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// ParseToken validates a signed token and returns the technician id.
func ParseToken(secret, signed string) (string, error) {
	token, err := jwt.ParseWithClaims(signed, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token claims")
	}
	return claims.Subject, nil
}

// Verify rejects requests without a valid login token and stores the
// technician id in Locals under TechnicianKey.
func Verify(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		signed := tokenFrom(c)
		if signed == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "Not Logged In.",
			})
		}
		technicianID, err := ParseToken(secret, signed)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "Invalid or expired token",
			})
		}
		c.Locals(TechnicianKey, technicianID)
		return c.Next()
	}
}

// TechnicianID returns the id stored by Verify, or "".
func TechnicianID(c *fiber.Ctx) string {
	id, _ := c.Locals(TechnicianKey).(string)
	return id
}
