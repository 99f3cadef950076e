package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	HeaderActorID = "X-Actor-Id"
	actorKey      = "actor_id"
)

// Actor identifies the caller of every command. With a secret it requires
// an HS256 bearer token and takes the actor from the "sub" claim; without
// one it trusts the X-Actor-Id header set by the front-end.
func Actor(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var (
				actor string
				err   error
			)
			if secret != "" {
				actor, err = actorFromToken(c.Request().Header.Get(echo.HeaderAuthorization), []byte(secret))
			} else {
				actor = strings.TrimSpace(c.Request().Header.Get(HeaderActorID))
				if actor == "" {
					err = errors.New("missing " + HeaderActorID)
				}
			}
			if err != nil {
				return c.JSON(http.StatusUnauthorized, denial(err.Error()))
			}
			c.Set(actorKey, actor)
			return next(c)
		}
	}
}

// ActorFrom returns the actor stored by Actor, or "".
func ActorFrom(c echo.Context) string {
	s, _ := c.Get(actorKey).(string)
	return s
}

func actorFromToken(header string, secret []byte) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", errors.New("missing bearer token")
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// RequireAdmin rejects callers outside the administrator roster.
func RequireAdmin(isAdmin func(id string) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !isAdmin(ActorFrom(c)) {
				return c.JSON(http.StatusForbidden, denial("this command is for administrators only"))
			}
			return next(c)
		}
	}
}

func denial(msg string) map[string]any {
	return map[string]any{"message": msg, "ephemeral": true}
}
