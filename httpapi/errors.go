package httpapi

import (
	"errors"
	"net/http"

	catalogAuth "github.com/MrEthical07/catalogAuth"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorMessage is the body of every non-2xx response.
type ErrorMessage struct {
	Message string `json:"message"`
}

// statusFor maps an Authority error to its HTTP status and client message.
// Internal failures never expose their cause.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, catalogAuth.ErrUsernameTaken):
		return http.StatusBadRequest, "Username already taken"
	case errors.Is(err, catalogAuth.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, catalogAuth.ErrInvalidRole):
		return http.StatusBadRequest, "Invalid role"
	case errors.Is(err, catalogAuth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, catalogAuth.ErrAccountInactive):
		return http.StatusForbidden, "Account is inactive"
	case errors.Is(err, catalogAuth.ErrNotAuthenticated):
		return http.StatusUnauthorized, "Not authenticated"
	case errors.Is(err, catalogAuth.ErrForbidden):
		return http.StatusForbidden, "Insufficient permissions"
	case errors.Is(err, catalogAuth.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, catalogAuth.ErrLoginRateLimited):
		return http.StatusTooManyRequests, "Too many login attempts"
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

func (s *Server) er(c echo.Context, err error) error {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		s.l.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(status, &ErrorMessage{Message: msg})
}

func (s *Server) msg(c echo.Context, status int, msg string) error {
	return c.JSON(status, &ErrorMessage{Message: msg})
}

// handleEchoError renders router and binding errors in the same body shape
// as handler errors.
func (s *Server) handleEchoError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := http.StatusText(status)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		msg = http.StatusText(status)
		if m, ok := he.Message.(string); ok && status < http.StatusInternalServerError {
			msg = m
		}
	} else {
		s.l.Error("unhandled error", zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, &ErrorMessage{Message: msg})
}
