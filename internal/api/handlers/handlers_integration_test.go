package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takeyourtokenapp/tyt.app/internal/api"
	"github.com/takeyourtokenapp/tyt.app/internal/config"
	"github.com/takeyourtokenapp/tyt.app/internal/database"
	"github.com/takeyourtokenapp/tyt.app/internal/identity"
	"go.uber.org/zap/zaptest"
)

// TestEnvironment runs the full router over a throwaway SQLite database.
type TestEnvironment struct {
	router *gin.Engine
	cfg    *config.Config
}

func setupTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()

	cfg := config.Default()
	cfg.Database.SQLite.Path = t.TempDir() + "/test.db"
	cfg.JWT.Secret = "test-secret-12345"
	cfg.JWT.Expiration = time.Hour
	cfg.Logging.Level = "error"

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate())

	return &TestEnvironment{
		router: api.NewRouter(cfg, db, zaptest.NewLogger(t)),
		cfg:    cfg,
	}
}

func (env *TestEnvironment) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// registerAndLogin creates an account with the given identity and returns a
// token for it.
func (env *TestEnvironment) registerAndLogin(t *testing.T, username string, id identity.Identity) string {
	t.Helper()

	w := env.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": username,
		"password": "password123",
		"identity": id.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func certPath(id identity.Identity, courseID uint64) string {
	return fmt.Sprintf("/api/v1/certificates/%s/%d", id.String(), courseID)
}

func TestCertificateLifecycleAPI(t *testing.T) {
	env := setupTestEnvironment(t)

	authorityID, err := identity.Random()
	require.NoError(t, err)
	studentID, err := identity.Random()
	require.NoError(t, err)

	authorityToken := env.registerAndLogin(t, "issuer", authorityID)
	studentToken := env.registerAndLogin(t, "student", studentID)

	t.Run("Config before initialize is 409", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/registry", "", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Initialize", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/registry/initialize", authorityToken, gin.H{
			"issuer_authority": authorityID.String(),
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var cfg struct {
			IssuerAuthority string `json:"issuer_authority"`
			TotalIssued     uint64 `json:"total_issued"`
		}
		decodeJSON(t, w, &cfg)
		assert.Equal(t, authorityID.String(), cfg.IssuerAuthority)
		assert.Equal(t, uint64(0), cfg.TotalIssued)
	})

	t.Run("Second initialize is 409", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/registry/initialize", studentToken, gin.H{
			"issuer_authority": studentID.String(),
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Initialize requires authentication", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/registry/initialize", "", gin.H{
			"issuer_authority": authorityID.String(),
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Issue by the authority", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/certificates", authorityToken, gin.H{
			"user":      studentID.String(),
			"course_id": 42,
			"level":     2,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var cert struct {
			Owner    string `json:"owner"`
			CourseID uint64 `json:"course_id"`
			Level    uint8  `json:"level"`
			Issuer   string `json:"issuer"`
			Revoked  bool   `json:"is_revoked"`
		}
		decodeJSON(t, w, &cert)
		assert.Equal(t, studentID.String(), cert.Owner)
		assert.Equal(t, uint64(42), cert.CourseID)
		assert.Equal(t, uint8(2), cert.Level)
		assert.Equal(t, authorityID.String(), cert.Issuer)
		assert.False(t, cert.Revoked)
	})

	t.Run("Issue by a non-authority is 403 with code 1", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/certificates", studentToken, gin.H{
			"user":      studentID.String(),
			"course_id": 43,
			"level":     1,
		})
		assert.Equal(t, http.StatusForbidden, w.Code)

		var resp struct {
			Code  int    `json:"code"`
			Error string `json:"error"`
		}
		decodeJSON(t, w, &resp)
		assert.Equal(t, 1, resp.Code)
		assert.Equal(t, "Unauthorized: Only issuer authority can perform this action", resp.Error)
	})

	t.Run("Duplicate issue is 409 with code 3", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/certificates", authorityToken, gin.H{
			"user":      studentID.String(),
			"course_id": 42,
			"level":     3,
		})
		assert.Equal(t, http.StatusConflict, w.Code)

		var resp struct {
			Code int `json:"code"`
		}
		decodeJSON(t, w, &resp)
		assert.Equal(t, 3, resp.Code)
	})

	t.Run("Invalid level is 400 with code 2", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/certificates", authorityToken, gin.H{
			"user":      studentID.String(),
			"course_id": 50,
			"level":     4,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Code int `json:"code"`
		}
		decodeJSON(t, w, &resp)
		assert.Equal(t, 2, resp.Code)
	})

	t.Run("Verify and info are public", func(t *testing.T) {
		w := env.do(t, http.MethodGet, certPath(studentID, 42)+"/verify", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"valid": true}`, w.Body.String())

		w = env.do(t, http.MethodGet, certPath(studentID, 42), "", nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Verify of a missing certificate is 404", func(t *testing.T) {
		w := env.do(t, http.MethodGet, certPath(studentID, 404)+"/verify", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Malformed identity in the path is 400", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/certificates/nothex/42/verify", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Revoke then verify false", func(t *testing.T) {
		w := env.do(t, http.MethodPut, certPath(studentID, 42)+"/revoke", authorityToken, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = env.do(t, http.MethodGet, certPath(studentID, 42)+"/verify", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"valid": false}`, w.Body.String())
	})

	t.Run("Revoke by the student is 403", func(t *testing.T) {
		w := env.do(t, http.MethodPut, certPath(studentID, 42)+"/revoke", studentToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Burn by the authority is 403", func(t *testing.T) {
		w := env.do(t, http.MethodDelete, certPath(studentID, 42), authorityToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Burn by the owner is 204 and the record is gone", func(t *testing.T) {
		w := env.do(t, http.MethodDelete, certPath(studentID, 42), studentToken, nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = env.do(t, http.MethodGet, certPath(studentID, 42), "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Authority rotation", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/api/v1/registry/authority", authorityToken, gin.H{
			"new_authority": studentID.String(),
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		// The old authority lost its power.
		w = env.do(t, http.MethodPost, "/api/v1/certificates", authorityToken, gin.H{
			"user":      studentID.String(),
			"course_id": 60,
			"level":     1,
		})
		assert.Equal(t, http.StatusForbidden, w.Code)

		// The new one can issue.
		w = env.do(t, http.MethodPost, "/api/v1/certificates", studentToken, gin.H{
			"user":      studentID.String(),
			"course_id": 60,
			"level":     1,
		})
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("Event stream reflects the lifecycle", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/events", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var events []struct {
			ID   int64  `json:"id"`
			Type string `json:"type"`
		}
		decodeJSON(t, w, &events)
		require.NotEmpty(t, events)

		var types []string
		for _, ev := range events {
			types = append(types, ev.Type)
		}
		assert.Equal(t, []string{
			"CertificateIssued",
			"CertificateRevoked",
			"CertificateBurned",
			"IssuerAuthorityUpdated",
			"CertificateIssued",
		}, types)

		// Cursor pagination.
		w = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/events?after=%d&limit=2", events[0].ID), "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var page []struct {
			ID int64 `json:"id"`
		}
		decodeJSON(t, w, &page)
		require.Len(t, page, 2)
		assert.Equal(t, events[1].ID, page[0].ID)
	})

	t.Run("Bad event cursor is 400", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/events?after=abc", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Current account endpoint", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/auth/me", studentToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Username string `json:"username"`
			Identity string `json:"identity"`
		}
		decodeJSON(t, w, &resp)
		assert.Equal(t, "student", resp.Username)
		assert.Equal(t, studentID.String(), resp.Identity)
	})

	t.Run("Metrics endpoint is exposed", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/metrics", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "academy_certificates_issued_total")
	})
}
