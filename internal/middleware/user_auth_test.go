package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const secret = "test-secret"

func router(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", UserAuth(secret, zaptest.NewLogger(t)), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	return r
}

func get(r http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUserAuthAcceptsIssuedToken(t *testing.T) {
	token, err := IssueUserToken("u-1", "ada@example.com", secret, time.Hour, time.Now())
	require.NoError(t, err)

	w := get(router(t), "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", w.Body.String())
}

func TestUserAuthRejects(t *testing.T) {
	r := router(t)
	expired, err := IssueUserToken("u-1", "", secret, time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	wrongKey, err := IssueUserToken("u-1", "", "other", time.Hour, time.Now())
	require.NoError(t, err)
	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}).SignedString([]byte(secret))
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":   "",
		"format":    "Token abc",
		"expired":   "Bearer " + expired,
		"signature": "Bearer " + wrongKey,
		"claim":     "Bearer " + noUser,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, get(r, header).Code)
		})
	}
}
