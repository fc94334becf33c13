package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/movietix/internal/model"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var errorCodes = []struct {
	target error
	status int
	code   string
}{
	{model.ErrValidation, http.StatusBadRequest, "validation_error"},
	{model.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{model.ErrForbidden, http.StatusForbidden, "forbidden"},
	{model.ErrNotFound, http.StatusNotFound, "not_found"},
	{model.ErrCapacityExceeded, http.StatusConflict, "capacity_exceeded"},
	{model.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{model.ErrConflict, http.StatusConflict, "conflict"},
}

// StatusFor maps err onto an HTTP status and a stable error code.
func StatusFor(err error) (int, string) {
	for _, e := range errorCodes {
		if errors.Is(err, e.target) {
			return e.status, e.code
		}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, codeForStatus(he.Code)
	}
	return http.StatusInternalServerError, "internal_error"
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	}
	if status >= 500 {
		return "internal_error"
	}
	return "error"
}

// HTTPErrorHandler renders errors returned by handlers and middleware as
// ErrorBody.  Server errors are logged and their message is hidden.
func HTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, code := StatusFor(err)
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) && !isDomain(err) {
			msg = fmt.Sprint(he.Message)
		}
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.Error(err),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
			msg = http.StatusText(status)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, ErrorBody{Error: code, Message: msg})
		}
		if werr != nil {
			log.Warn("write error response", zap.Error(werr))
		}
	}
}

func isDomain(err error) bool {
	for _, e := range errorCodes {
		if errors.Is(err, e.target) {
			return true
		}
	}
	return false
}
