package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(secret)
	require.NoError(t, err)
	return s
}

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"account_id": c.GetString(CtxAccountIDKey),
			"role":       c.GetString(CtxRoleKey),
		})
	})
	r.GET("/probe", chain...)
	return r
}

func doProbe(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	r := newTestRouter(RequireAuth(testSecret))
	w := doProbe(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	r := newTestRouter(RequireAuth(testSecret))
	w := doProbe(r, "Token abcdef")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_ValidToken(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "librarian01",
		"role": "librarian",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	r := newTestRouter(RequireAuth(testSecret))
	w := doProbe(r, "Bearer "+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "librarian01")
}

func TestRequireAuth_WrongSecret(t *testing.T) {
	token := signToken(t, []byte("other-secret"), jwt.MapClaims{
		"sub": "librarian01",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	r := newTestRouter(RequireAuth(testSecret))
	w := doProbe(r, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "librarian01",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	r := newTestRouter(RequireAuth(testSecret))
	w := doProbe(r, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole_Forbidden(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "librarian01",
		"role": "librarian",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	r := newTestRouter(RequireAuth(testSecret), RequireRole("admin"))
	w := doProbe(r, "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRole_Allowed(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "admin01",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	r := newTestRouter(RequireAuth(testSecret), RequireRole("admin"))
	w := doProbe(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}
