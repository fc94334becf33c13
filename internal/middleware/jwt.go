package middleware // reusable HTTP middleware shared by every route group

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movietix/internal/authctx"
	"github.com/iliyamo/movietix/internal/model"
	"github.com/iliyamo/movietix/internal/utils"
)

// PrincipalKey is the echo context key under which JWTAuth stores the
// authenticated authctx.Principal.
const PrincipalKey = "principal"

// JWTAuth validates the Bearer access token and exposes the caller as an
// authctx.Principal, both on the echo context and on the request context so
// services can read it without depending on echo.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return fmt.Errorf("%w: missing bearer token", model.ErrUnauthorized)
			}
			if err := authenticate(c, secret, raw); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// OptionalJWTAuth behaves like JWTAuth when a bearer token is present and
// lets anonymous requests through untouched.
func OptionalJWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearerToken(c); ok {
				if err := authenticate(c, secret, raw); err != nil {
					return err
				}
			}
			return next(c)
		}
	}
}

func authenticate(c echo.Context, secret, raw string) error {
	claims, err := utils.ParseAccessToken(secret, raw)
	if err != nil {
		return fmt.Errorf("%w: invalid token", model.ErrUnauthorized)
	}
	uid, err := claims.UserID()
	if err != nil {
		return fmt.Errorf("%w: invalid token subject", model.ErrUnauthorized)
	}
	p := authctx.Principal{UserID: uid, Role: claims.Role, Email: claims.Email}
	c.Set(PrincipalKey, p)
	c.SetRequest(c.Request().WithContext(authctx.WithPrincipal(c.Request().Context(), p)))
	return nil
}

// Principal returns the caller stored by JWTAuth.
func Principal(c echo.Context) (authctx.Principal, bool) {
	p, ok := c.Get(PrincipalKey).(authctx.Principal)
	return p, ok && p.UserID != 0
}

func bearerToken(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(auth[7:])
	return raw, raw != ""
}
