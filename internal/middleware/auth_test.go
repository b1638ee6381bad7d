package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemed-server/internal/config"
	"telemed-server/internal/models"
	"telemed-server/internal/utils"
	"telemed-server/pkg/logging"
)

const testSecret = "middleware-secret"

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(testSecret), func(c *gin.Context) {
		id, _ := GetUserIDFromContext(c)
		role, _ := GetUserRoleFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "name": GetUserNameFromContext(c), "role": role})
	})
	r.GET("/doctors-only", AuthMiddleware(testSecret), RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func tokenFor(t *testing.T, role models.Role) string {
	t.Helper()
	user := &models.User{BaseModel: models.BaseModel{ID: "u1"}, FirstName: "Meera", LastName: "Iyer", Role: role}
	token, err := utils.GenerateAccessToken(user, &config.Config{JWTSecret: testSecret, JWTExpirationMinutes: 5})
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"scheme only", "Bearer", http.StatusUnauthorized},
		{"extra parts", "Bearer a b", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"unknown role", "Bearer " + tokenFor(t, models.Role("nurse")), http.StatusUnauthorized},
		{"valid", "Bearer " + tokenFor(t, models.RolePatient), http.StatusOK},
		{"lowercase scheme", "bearer " + tokenFor(t, models.RoleDoctor), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAuthMiddlewareSetsIdentity(t *testing.T) {
	r := newTestRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, models.RolePatient))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "u1", body["id"])
	assert.Equal(t, "Meera Iyer", body["name"])
	assert.Equal(t, "patient", body["role"])
}

func TestRoleAuthMiddleware(t *testing.T) {
	r := newTestRouter()

	for role, want := range map[models.Role]int{
		models.RolePatient: http.StatusForbidden,
		models.RoleDoctor:  http.StatusNoContent,
		models.RoleAdmin:   http.StatusNoContent,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/doctors-only", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, role))
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, string(role))
	}
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(logging.NewWithWriter("info", &buf)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-42")
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "/ping", entry["path"])
	assert.EqualValues(t, 200, entry["status"])
}

func TestRoleAuthMiddlewareWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", RoleAuthMiddleware(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("  Bearer   abc.def  ")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	_, ok = bearerToken("Token abc")
	assert.False(t, ok)
}
