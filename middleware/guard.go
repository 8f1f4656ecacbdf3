package middleware

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	catalogAuth "github.com/MrEthical07/catalogAuth"
)

// CookieName is the cookie carrying the session token.
const CookieName = "catalog_session"

const (
	msgAuthRequired     = "Authentication required"
	msgForbidden        = "Insufficient permissions"
	msgInternalError    = "Internal Server Error"
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	contentTypeJSON     = "application/json"
)

// TokenFromRequest returns the session token from the cookie or, failing
// that, from an "Authorization: Bearer" header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	token, _ := bearerToken(r.Header.Get(headerAuthorization))
	return token
}

// Authenticate resolves the request's session token, if any, and attaches
// the client IP, the raw token and the resolved principal to the request
// context. Requests without a valid session pass through anonymous.
func Authenticate(authority *catalogAuth.Authority) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := catalogAuth.WithClientIP(r.Context(), clientIP(r))

			if token := TokenFromRequest(r); token != "" {
				ctx = catalogAuth.WithSessionToken(ctx, token)
				if authority != nil {
					if p, err := authority.Authenticate(ctx, token); err == nil {
						ctx = catalogAuth.WithPrincipal(ctx, p)
					}
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests without a live session with 401.
func RequireAuth(authority *catalogAuth.Authority) func(http.Handler) http.Handler {
	return guard(authority, nil)
}

// RequireRole rejects requests without a live session with 401 and requests
// whose role is not in roles with 403.
func RequireRole(authority *catalogAuth.Authority, roles ...catalogAuth.Role) func(http.Handler) http.Handler {
	if roles == nil {
		roles = []catalogAuth.Role{}
	}
	return guard(authority, roles)
}

// guard checks authentication and, when roles is non-nil, the role. It
// resolves the token itself when Authenticate did not run first.
func guard(authority *catalogAuth.Authority, roles []catalogAuth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authority == nil {
				writeMessage(w, http.StatusUnauthorized, msgAuthRequired)
				return
			}

			ctx := r.Context()
			if _, ok := catalogAuth.PrincipalFromContext(ctx); !ok {
				token := TokenFromRequest(r)
				if token == "" {
					writeMessage(w, http.StatusUnauthorized, msgAuthRequired)
					return
				}
				p, err := authority.Authenticate(ctx, token)
				if err != nil {
					writeError(w, err)
					return
				}
				ctx = catalogAuth.WithSessionToken(ctx, token)
				ctx = catalogAuth.WithPrincipal(ctx, p)
			}

			if roles != nil {
				if _, err := authority.RequireRole(ctx, roles...); err != nil {
					writeError(w, err)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalogAuth.ErrForbidden):
		writeMessage(w, http.StatusForbidden, msgForbidden)
	case errors.Is(err, catalogAuth.ErrNotAuthenticated):
		writeMessage(w, http.StatusUnauthorized, msgAuthRequired)
	default:
		writeMessage(w, http.StatusInternalServerError, msgInternalError)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
