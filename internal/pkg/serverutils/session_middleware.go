package serverutils

import (
	"errors"
	"time"

	"studymate-be/internal/constant"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionLocalKey = "session_id"

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionMiddleware issues an anonymous browser session cookie, a signed token holding the session id.
// Missing, tampered or expired cookies start a fresh session.
func SessionMiddleware(secret string, ttl time.Duration, secure bool) fiber.Handler {
	key := []byte(secret)

	return func(ctx *fiber.Ctx) error {
		sid, err := parseSessionToken(ctx.Cookies(constant.SessionCookieName), key)
		if err != nil {
			sid = uuid.NewString()
		}

		token, err := signSessionToken(sid, key, ttl)
		if err != nil {
			return err
		}
		ctx.Cookie(&fiber.Cookie{
			Name:     constant.SessionCookieName,
			Value:    token,
			Path:     "/",
			Expires:  time.Now().Add(ttl),
			HTTPOnly: true,
			Secure:   secure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})

		ctx.Locals(sessionLocalKey, sid)
		return ctx.Next()
	}
}

// SessionID returns the id set by SessionMiddleware.
func SessionID(ctx *fiber.Ctx) string {
	sid, _ := ctx.Locals(sessionLocalKey).(string)
	return sid
}

func signSessionToken(sid string, key []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

func parseSessionToken(raw string, key []byte) (string, error) {
	if raw == "" {
		return "", errors.New("no session cookie")
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", errors.New("invalid session cookie")
	}
	if _, err := uuid.Parse(claims.SessionID); err != nil {
		return "", errors.New("invalid session id")
	}
	return claims.SessionID, nil
}
