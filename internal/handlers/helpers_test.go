package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"telemed-server/internal/consultation"
	"telemed-server/internal/middleware"
	"telemed-server/internal/models"
	"telemed-server/pkg/logging"
)

// testNow is 09:50 UTC on Monday 2025-04-14.
var testNow = time.Date(2025, 4, 14, 9, 50, 0, 0, time.UTC)

type user struct {
	id   string
	role models.Role
	name string
}

var (
	patient1 = user{"p1", models.RolePatient, "Anand Sharma"}
	patient2 = user{"p2", models.RolePatient, "Meera Iyer"}
	doctor1  = user{"doc1", models.RoleDoctor, "Dr. Lakshmi Nair"}
	doctor2  = user{"doc2", models.RoleDoctor, "Dr. Rahul Verma"}
	admin    = user{"admin1", models.RoleAdmin, "Admin"}
)

type templates map[string]models.WeeklyTemplate

func (t templates) WeeklyTemplate(_ context.Context, doctorID string) (models.WeeklyTemplate, error) {
	tpl, ok := t[doctorID]
	if !ok {
		return nil, fmt.Errorf("%w: doctor %s", consultation.ErrNotFound, doctorID)
	}
	return tpl, nil
}

func newTestEngine(t *testing.T) (*consultation.Engine, *consultation.MemoryRepository, *consultation.Catalog) {
	t.Helper()
	repo, err := consultation.NewMemoryRepository(context.Background(), nil)
	require.NoError(t, err)

	slots := []string{"10:00 AM", "11:00 AM", "2:00 PM"}
	tpl := templates{
		"doc1": {{Day: "Monday", Slots: slots}, {Day: "Wednesday", Slots: slots}},
		"doc2": {{Day: "Monday", Slots: slots}},
	}
	catalog := consultation.NewSeededCatalog()
	engine := consultation.NewEngine(repo, catalog, tpl,
		consultation.WithLogger(logging.Discard()),
		consultation.WithClock(func() time.Time { return testNow }),
	)
	return engine, repo, catalog
}

// fakeAuth trusts X-Test-* headers in place of a JWT.
func fakeAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			middleware.SetIdentity(c, middleware.Identity{
				UserID: id,
				Name:   c.GetHeader("X-Test-Name"),
				Role:   models.Role(c.GetHeader("X-Test-Role")),
			})
		}
		c.Next()
	}
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(fakeAuth())
	return r
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func do(t *testing.T, r http.Handler, method, path string, as *user, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("X-Test-User", as.id)
		req.Header.Set("X-Test-Role", string(as.role))
		req.Header.Set("X-Test-Name", as.name)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// decode unpacks the response envelope and its data into out (when non-nil).
func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}
