package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labot-admin-go/pkg/token"
)

func newRouter(jwt *token.JWTManager, domain string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/admin", AuthMiddleware(jwt), AdminAuthMiddleware(domain), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentClaims(c).Email)
	})
	return r
}

func get(r http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminRouteRequiresToken(t *testing.T) {
	r := newRouter(token.NewJWTManager("secret", 1), "@example.com")

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer abc").Code)
}

func TestAdminRouteChecksEmailDomain(t *testing.T) {
	jwt := token.NewJWTManager("secret", 1)
	r := newRouter(jwt, "@example.com")

	allowed, err := jwt.GenerateToken("ana@Example.com", "Ana")
	require.NoError(t, err)
	w := get(r, "Bearer "+allowed)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana@Example.com", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	other, err := jwt.GenerateToken("eve@gmail.com", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(r, "Bearer "+other).Code)
}

func TestRequestLoggerKeepsIncomingRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
