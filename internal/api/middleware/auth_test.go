package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takeyourtokenapp/tyt.app/internal/auth"
	"github.com/takeyourtokenapp/tyt.app/internal/config"
	"github.com/takeyourtokenapp/tyt.app/internal/identity"
)

func testRouter(cfg *config.Config) (*gin.Engine, *identity.Identity) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var captured identity.Identity
	r.GET("/protected", AuthMiddleware(cfg), func(c *gin.Context) {
		id, ok := CallerIdentity(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no identity in context"})
			return
		}
		captured = id
		c.JSON(http.StatusOK, gin.H{"identity": id.String()})
	})
	return r, &captured
}

func TestAuthMiddleware(t *testing.T) {
	cfg := config.Default()
	cfg.JWT.Secret = "test-secret-12345"

	id, err := identity.Random()
	require.NoError(t, err)

	validToken, err := auth.GenerateToken("user-1", "alice", id.String(), cfg.JWT.Secret, cfg.JWT.Issuer, time.Hour)
	require.NoError(t, err)

	request := func(t *testing.T, header string) *httptest.ResponseRecorder {
		t.Helper()
		r, _ := testRouter(cfg)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("Valid token passes the identity through", func(t *testing.T) {
		r, captured := testRouter(cfg)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+validToken)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, captured.Equal(id))
	})

	t.Run("Missing header is rejected", func(t *testing.T) {
		w := request(t, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "authorization header required")
	})

	t.Run("Malformed header is rejected", func(t *testing.T) {
		w := request(t, "Basic abc123")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid authorization header format")
	})

	t.Run("Garbage token is rejected", func(t *testing.T) {
		w := request(t, "Bearer not.a.token")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid or expired token")
	})

	t.Run("Token signed with another secret is rejected", func(t *testing.T) {
		other, err := auth.GenerateToken("user-1", "alice", id.String(), "other-secret", cfg.JWT.Issuer, time.Hour)
		require.NoError(t, err)

		w := request(t, "Bearer "+other)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Token with a malformed identity claim is rejected", func(t *testing.T) {
		bad, err := auth.GenerateToken("user-1", "alice", "not-hex", cfg.JWT.Secret, cfg.JWT.Issuer, time.Hour)
		require.NoError(t, err)

		w := request(t, "Bearer "+bad)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "token carries no valid identity")
	})
}

func TestCallerIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := CallerIdentity(c)
	assert.False(t, ok, "unauthenticated context should have no identity")
}
