package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	catalogAuth "github.com/MrEthical07/catalogAuth"
	"github.com/MrEthical07/catalogAuth/directory"
	"github.com/MrEthical07/catalogAuth/middleware"
	"github.com/MrEthical07/catalogAuth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	e    *echo.Echo
	auth *catalogAuth.Authority
	mr   *miniredis.Miniredis
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := catalogAuth.DefaultConfig()
	cfg.Token.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Iterations = password.MinIterations
	cfg.Security.MaxLoginAttempts = 3

	auth, err := catalogAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithDirectory(directory.NewMemory()).
		WithAuditSink(catalogAuth.NoOpSink{}).
		Build()
	require.NoError(t, err)
	t.Cleanup(auth.Close)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	return &testEnv{e: New(auth, Options{Metrics: metrics}), auth: auth, mr: mr}
}

func (env *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		r.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, r)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", middleware.CookieName)
	return nil
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var m ErrorMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m.Message
}

func (env *testEnv) register(t *testing.T, username string) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/register",
		fmt.Sprintf(`{"username":%q,"password":"pw-%s","email":"%s@example.org"}`, username, username, username), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return sessionCookie(t, rec).Value
}

func (env *testEnv) admin(t *testing.T) string {
	t.Helper()
	_, err := env.auth.EnsureAdmin(context.Background(), "root", "root-password", "root@example.org")
	require.NoError(t, err)
	rec := env.do(t, http.MethodPost, "/api/login", `{"username":"root","password":"root-password"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return sessionCookie(t, rec).Value
}

func TestRegisterAndMe(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodPost, "/api/register",
		`{"username":"alice","password":"alicepw","email":"alice@example.org","organization":"Stats"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, cookie.Value, rec.Header().Get(HeaderSessionToken))
	assert.NotContains(t, rec.Body.String(), "password")

	var user map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "user", user["role"])
	assert.Equal(t, true, user["isActive"])
	assert.Equal(t, "Stats", user["organization"])

	rec = env.do(t, http.MethodGet, "/api/me", "", cookie.Value)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
	assert.NotContains(t, rec.Body.String(), "passwordHash")
}

func TestRegisterDuplicate(t *testing.T) {
	env := newEnv(t)
	env.register(t, "bob")

	rec := env.do(t, http.MethodPost, "/api/register", `{"username":"bob","password":"other-pw","email":"b@x.org"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username already taken", message(t, rec))
}

func TestRegisterInvalidBody(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodPost, "/api/register", `{"username":`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidBody, message(t, rec))

	rec = env.do(t, http.MethodPost, "/api/register", `{"username":"x","password":"1","email":"x@y.z"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginFlow(t *testing.T) {
	env := newEnv(t)
	env.register(t, "carol")

	rec := env.do(t, http.MethodPost, "/api/login", `{"username":"carol","password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", message(t, rec))

	rec = env.do(t, http.MethodPost, "/api/login", `{"username":"admin","password":"admin1234"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/login", `{"username":"carol","password":"pw-carol"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	token := sessionCookie(t, rec).Value

	rec = env.do(t, http.MethodPost, "/api/logout", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out successfully", message(t, rec))
	assert.Equal(t, -1, sessionCookie(t, rec).MaxAge)

	rec = env.do(t, http.MethodGet, "/api/me", "", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", message(t, rec))
}

func TestLogoutWithoutSession(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodPost, "/api/logout", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out successfully", message(t, rec))
}

func TestLoginInactive(t *testing.T) {
	env := newEnv(t)
	adminToken := env.admin(t)
	env.register(t, "dave")

	users := env.listUsers(t, adminToken)
	id := users["dave"]
	rec := env.do(t, http.MethodPut, "/api/users/"+id+"/status", `{"isActive":false}`, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/login", `{"username":"dave","password":"pw-dave"}`, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Account is inactive", message(t, rec))
}

func TestLoginThrottled(t *testing.T) {
	env := newEnv(t)
	env.register(t, "erin")

	for i := 0; i < 3; i++ {
		env.do(t, http.MethodPost, "/api/login", `{"username":"erin","password":"bad"}`, "")
	}
	rec := env.do(t, http.MethodPost, "/api/login", `{"username":"erin","password":"pw-erin"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many login attempts", message(t, rec))
}

func (env *testEnv) listUsers(t *testing.T, token string) map[string]string {
	t.Helper()
	rec := env.do(t, http.MethodGet, "/api/users", "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var list []catalogAuth.UserSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	out := make(map[string]string, len(list))
	for _, u := range list {
		out[u.Username] = u.ID
	}
	return out
}

func TestUserAdministrationGuards(t *testing.T) {
	env := newEnv(t)
	userToken := env.register(t, "frank")

	rec := env.do(t, http.MethodGet, "/api/users", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required", message(t, rec))

	rec = env.do(t, http.MethodGet, "/api/users", "", userToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Insufficient permissions", message(t, rec))

	rec = env.do(t, http.MethodPost, "/api/users", `{"username":"x","password":"xpassword","email":"x@y.z"}`, userToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminCreatesAndPromotesUser(t *testing.T) {
	env := newEnv(t)
	adminToken := env.admin(t)

	rec := env.do(t, http.MethodPost, "/api/users",
		`{"username":"gina","password":"gina-password","email":"gina@x.org","role":"uploader"}`, adminToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"role":"uploader"`)

	rec = env.do(t, http.MethodPost, "/api/users",
		`{"username":"gina","password":"gina-password","email":"gina@x.org"}`, adminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username already taken", message(t, rec))

	rec = env.do(t, http.MethodPost, "/api/users",
		`{"username":"hank","password":"hank-password","email":"h@x.org","role":"superuser"}`, adminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	users := env.listUsers(t, adminToken)
	require.Contains(t, users, "gina")
	require.Contains(t, users, "root")

	rec = env.do(t, http.MethodPut, "/api/users/"+users["gina"]+"/role", `{"role":"admin"}`, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"role":"admin"`)

	rec = env.do(t, http.MethodPut, "/api/users/missing/role", `{"role":"admin"}`, adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/users/"+users["gina"]+"/status", `{}`, adminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadAccess(t *testing.T) {
	env := newEnv(t)
	adminToken := env.admin(t)
	userToken := env.register(t, "ivy")

	rec := env.do(t, http.MethodGet, "/api/upload/access", "", userToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	users := env.listUsers(t, adminToken)
	rec = env.do(t, http.MethodPut, "/api/users/"+users["ivy"]+"/role", `{"role":"uploader"}`, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/upload/access", "", userToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"allowed":true,"role":"uploader"}`, rec.Body.String())
}

func TestChangePassword(t *testing.T) {
	env := newEnv(t)
	token := env.register(t, "jack")

	rec := env.do(t, http.MethodPost, "/api/me/password", `{"currentPassword":"wrong","newPassword":"fresh-pw"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/me/password", `{"currentPassword":"pw-jack","newPassword":"fresh-pw"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/me/password", `{"currentPassword":"pw-jack","newPassword":"fresh-pw"}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/login", `{"username":"jack","password":"fresh-pw"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerTokenAccepted(t *testing.T) {
	env := newEnv(t)
	token := env.register(t, "kate")

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	env.mr.SetError("down")
	defer env.mr.SetError("")
	rec = env.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestInternalErrorsHideDetail(t *testing.T) {
	env := newEnv(t)
	token := env.register(t, "liam")

	env.mr.SetError("secret backend detail")
	defer env.mr.SetError("")

	rec := env.do(t, http.MethodGet, "/api/me", "", token)
	// The lookup fails, so the request proceeds anonymous.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/logout", "", token)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", message(t, rec))
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestUnknownRouteBody(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", message(t, rec))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{catalogAuth.ErrUsernameTaken, http.StatusBadRequest, "Username already taken"},
		{catalogAuth.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{catalogAuth.ErrAccountInactive, http.StatusForbidden, "Account is inactive"},
		{catalogAuth.ErrNotAuthenticated, http.StatusUnauthorized, "Not authenticated"},
		{catalogAuth.ErrForbidden, http.StatusForbidden, "Insufficient permissions"},
		{catalogAuth.ErrUserNotFound, http.StatusNotFound, "User not found"},
		{catalogAuth.ErrLoginRateLimited, http.StatusTooManyRequests, "Too many login attempts"},
		{fmt.Errorf("%w: boom", catalogAuth.ErrInternal), http.StatusInternalServerError, "Internal Server Error"},
		{errors.New("unexpected"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		status, msg := statusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.msg, msg, tt.err.Error())
	}
}
