package httpapi

import (
	"net/http"
	"time"

	catalogAuth "github.com/MrEthical07/catalogAuth"
	"github.com/MrEthical07/catalogAuth/middleware"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Options configures the HTTP boundary.
type Options struct {
	// CookieSecure sets the Secure attribute on the session cookie.
	CookieSecure bool
	// Metrics, when set, is served at GET /metrics.
	Metrics http.Handler
	Logger  *zap.Logger
}

// Server holds the handler dependencies.
type Server struct {
	l            *zap.Logger
	auth         *catalogAuth.Authority
	cookieSecure bool
}

// New returns an echo instance with every route of the catalog auth API
// registered.
func New(auth *catalogAuth.Authority, opts Options) *echo.Echo {
	l := opts.Logger
	if l == nil {
		l = zap.NewNop()
	}
	s := &Server{
		l:            l.Named("http"),
		auth:         auth,
		cookieSecure: opts.CookieSecure,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleEchoError

	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			s.l.Info("request",
				zap.String("method", v.Method),
				zap.String("path", v.URIPath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("64K"))

	e.GET("/healthz", s.Health)
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}

	requireAdmin := echo.WrapMiddleware(middleware.RequireRole(auth, catalogAuth.RoleAdmin))

	api := e.Group("/api", echo.WrapMiddleware(middleware.Authenticate(auth)))
	api.POST("/register", s.Register)
	api.POST("/login", s.Login)
	api.POST("/logout", s.Logout)
	api.GET("/me", s.Me)
	api.POST("/me/password", s.ChangePassword, echo.WrapMiddleware(middleware.RequireAuth(auth)))

	users := api.Group("/users", requireAdmin)
	users.GET("", s.ListUsers)
	users.POST("", s.CreateUser)
	users.PUT("/:id/role", s.SetUserRole)
	users.PUT("/:id/status", s.SetUserStatus)

	api.GET("/upload/access", s.UploadAccess,
		echo.WrapMiddleware(middleware.RequireRole(auth, catalogAuth.RoleAdmin, catalogAuth.RoleUploader)))

	return e
}

func (s *Server) setSessionCookie(c echo.Context, token string, expiresAt time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	c.Response().Header().Set(HeaderSessionToken, token)
}

func (s *Server) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
