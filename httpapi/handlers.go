package httpapi

import (
	"errors"
	"net/http"

	catalogAuth "github.com/MrEthical07/catalogAuth"
	"github.com/MrEthical07/catalogAuth/middleware"
	"github.com/labstack/echo/v4"
)

// HeaderSessionToken carries the session token on login and register for
// clients that do not keep cookies.
const HeaderSessionToken = "X-Session-Token"

const msgInvalidBody = "Invalid request body"

type changePasswordBody struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type roleBody struct {
	Role catalogAuth.Role `json:"role"`
}

type statusBody struct {
	IsActive *bool `json:"isActive"`
}

type healthBody struct {
	Status string `json:"status"`
}

type uploadAccessBody struct {
	Allowed bool             `json:"allowed"`
	Role    catalogAuth.Role `json:"role"`
}

func (s *Server) Register(c echo.Context) error {
	var req catalogAuth.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return s.msg(c, http.StatusBadRequest, msgInvalidBody)
	}

	res, err := s.auth.Register(c.Request().Context(), req)
	if err != nil {
		return s.er(c, err)
	}

	s.setSessionCookie(c, res.Token, res.ExpiresAt)
	return c.JSON(http.StatusCreated, res.User)
}

func (s *Server) Login(c echo.Context) error {
	var req catalogAuth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return s.msg(c, http.StatusBadRequest, msgInvalidBody)
	}

	res, err := s.auth.Login(c.Request().Context(), req)
	if err != nil {
		return s.er(c, err)
	}

	s.setSessionCookie(c, res.Token, res.ExpiresAt)
	return c.JSON(http.StatusOK, res.User)
}

func (s *Server) Logout(c echo.Context) error {
	token := middleware.TokenFromRequest(c.Request())
	if err := s.auth.Logout(c.Request().Context(), token); err != nil {
		return s.er(c, err)
	}

	s.clearSessionCookie(c)
	return s.msg(c, http.StatusOK, "Logged out successfully")
}

func (s *Server) Me(c echo.Context) error {
	p, ok := catalogAuth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return s.er(c, catalogAuth.ErrNotAuthenticated)
	}
	return c.JSON(http.StatusOK, p.User)
}

func (s *Server) ChangePassword(c echo.Context) error {
	var body changePasswordBody
	if err := c.Bind(&body); err != nil {
		return s.msg(c, http.StatusBadRequest, msgInvalidBody)
	}

	token := middleware.TokenFromRequest(c.Request())
	err := s.auth.ChangePassword(c.Request().Context(), token, body.CurrentPassword, body.NewPassword)
	if errors.Is(err, catalogAuth.ErrInvalidCredentials) {
		return s.msg(c, http.StatusBadRequest, "Current password is incorrect")
	}
	if err != nil {
		return s.er(c, err)
	}

	return s.msg(c, http.StatusOK, "Password updated")
}

func (s *Server) ListUsers(c echo.Context) error {
	users, err := s.auth.ListUsers(c.Request().Context())
	if err != nil {
		return s.er(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

func (s *Server) CreateUser(c echo.Context) error {
	var req catalogAuth.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return s.msg(c, http.StatusBadRequest, msgInvalidBody)
	}

	user, err := s.auth.CreateUser(c.Request().Context(), req)
	if err != nil {
		return s.er(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (s *Server) SetUserRole(c echo.Context) error {
	var body roleBody
	if err := c.Bind(&body); err != nil {
		return s.msg(c, http.StatusBadRequest, msgInvalidBody)
	}

	user, err := s.auth.SetUserRole(c.Request().Context(), c.Param("id"), body.Role)
	if err != nil {
		return s.er(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) SetUserStatus(c echo.Context) error {
	var body statusBody
	if err := c.Bind(&body); err != nil || body.IsActive == nil {
		return s.msg(c, http.StatusBadRequest, msgInvalidBody)
	}

	user, err := s.auth.SetUserActive(c.Request().Context(), c.Param("id"), *body.IsActive)
	if err != nil {
		return s.er(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// UploadAccess is a probe for the upload pipeline; the route guard already
// decided.
func (s *Server) UploadAccess(c echo.Context) error {
	p, ok := catalogAuth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return s.er(c, catalogAuth.ErrNotAuthenticated)
	}
	return c.JSON(http.StatusOK, &uploadAccessBody{Allowed: true, Role: p.User.Role})
}

func (s *Server) Health(c echo.Context) error {
	if err := s.auth.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, &healthBody{Status: "unavailable"})
	}
	return c.JSON(http.StatusOK, &healthBody{Status: "ok"})
}
