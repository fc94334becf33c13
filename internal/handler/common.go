package handler // HTTP handlers; each returns errors for the central error handler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movietix/internal/authctx"
	"github.com/iliyamo/movietix/internal/model"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", model.ErrValidation, name, raw)
	}
	return id, nil
}

// bind decodes the request body into dst.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", model.ErrValidation)
	}
	return nil
}

// caller returns the principal the auth middleware put on the request
// context, or an Unauthorized error.
func caller(c echo.Context) (authctx.Principal, error) {
	p, ok := authctx.FromContext(c.Request().Context())
	if !ok {
		return authctx.Principal{}, fmt.Errorf("%w: authentication required", model.ErrUnauthorized)
	}
	return p, nil
}

// MessageResp is returned by endpoints that have nothing else to report.
type MessageResp struct {
	Message string `json:"message"`
}
