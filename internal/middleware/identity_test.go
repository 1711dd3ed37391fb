package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"concert-tickets/internal/middleware"
	"concert-tickets/internal/testutil"
	apperrors "concert-tickets/pkg/app_errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.Identity(secret))

	router.GET("/public", func(c *gin.Context) {
		_, ok := middleware.UserID(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})
	router.GET("/me", middleware.RequireUser(), func(c *gin.Context) {
		userID, _ := middleware.UserID(c)
		c.String(http.StatusOK, userID.String())
	})
	router.GET("/admin", middleware.RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func request(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sign(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(secret)
	require.NoError(t, err)
	return signed
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestIdentity(t *testing.T) {
	router := setupRouter()
	userID := uuid.New()

	t.Run("Public route without token", func(t *testing.T) {
		w := request(router, "/public", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())
	})

	t.Run("Valid userid claim", func(t *testing.T) {
		w := request(router, "/me", testutil.Token(t, secret, userID, false))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, userID.String(), w.Body.String())
	})

	t.Run("Falls back to sub", func(t *testing.T) {
		token := sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": userID.String()})
		w := request(router, "/me", token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, userID.String(), w.Body.String())
	})

	t.Run("Missing token", func(t *testing.T) {
		w := request(router, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, apperrors.ErrUnauthorized.Error(), errorOf(t, w))
	})

	t.Run("Malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/public", nil)
		req.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		token := testutil.Token(t, []byte("other"), userID, false)
		w := request(router, "/public", token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, apperrors.ErrUnauthorized.Error(), errorOf(t, w))
	})

	t.Run("Unexpected algorithm", func(t *testing.T) {
		token := sign(t, jwt.SigningMethodHS512, jwt.MapClaims{"userid": userID.String()})
		w := request(router, "/me", token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Expired", func(t *testing.T) {
		token := sign(t, jwt.SigningMethodHS256, jwt.MapClaims{
			"userid": userID.String(),
			"exp":    time.Now().Add(-time.Minute).Unix(),
		})
		w := request(router, "/me", token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Userid is not a uuid", func(t *testing.T) {
		token := sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"userid": "42"})
		w := request(router, "/me", token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("No user claim", func(t *testing.T) {
		token := sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"name": "someone"})
		w := request(router, "/me", token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	router := setupRouter()

	t.Run("Admin", func(t *testing.T) {
		w := request(router, "/admin", testutil.Token(t, secret, uuid.New(), true))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Not admin", func(t *testing.T) {
		w := request(router, "/admin", testutil.Token(t, secret, uuid.New(), false))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, apperrors.ErrForbidden.Error(), errorOf(t, w))
	})

	t.Run("Anonymous", func(t *testing.T) {
		w := request(router, "/admin", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
