package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"pollboard-backend/auth"
	"pollboard-backend/config"
	"pollboard-backend/database"
	"pollboard-backend/models"
	"pollboard-backend/polls"
	"pollboard-backend/ratelimit"
	"pollboard-backend/routes"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv is the full router over an in-memory SQLite database.
type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	gw     *auth.Gateway
}

func setupTestEnvironment(t *testing.T) *testEnv {
	return setupTestEnvironmentCfg(t, nil)
}

// setupTestEnvironmentCfg builds the env with an optional config tweak
// applied before the router is assembled.
func setupTestEnvironmentCfg(t *testing.T, tweak func(*config.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	})

	cfg := config.Default()
	cfg.BcryptCost = 4
	cfg.RateLimitMax = 10000
	cfg.AuthBurstRPS = 10000
	cfg.AuthBurstSize = 10000
	if tweak != nil {
		tweak(cfg)
	}

	gw := auth.NewGateway(auth.NewGormProvider(db, cfg.BcryptCost, cfg.SessionMaxAge))
	router := routes.SetupRouter(cfg, routes.Deps{
		DB:      db,
		Gateway: gw,
		Polls:   polls.NewService(db, gw),
		Limiter: ratelimit.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow),
	})

	return &testEnv{router: router, db: db, gw: gw}
}

// do sends a request, optionally with a session cookie, and decodes the JSON
// response body.
func (e *testEnv) do(t *testing.T, method, path, sessionToken string, form url.Values) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: sessionToken})
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	decoded := map[string]interface{}{}
	if w.Body.Len() > 0 && strings.Contains(w.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	}
	return w, decoded
}

// register creates an account through the API and returns its session token.
func (e *testEnv) register(t *testing.T, name, email string) string {
	t.Helper()
	form := url.Values{}
	form.Set("name", name)
	form.Set("email", email)
	form.Set("password", "Str0ng!pass")

	w, _ := e.do(t, http.MethodPost, "/api/auth/register", "", form)
	require.Equal(t, http.StatusOK, w.Code, "register failed: %s", w.Body.String())

	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookie && c.Value != "" {
			return c.Value
		}
	}
	t.Fatal("no session cookie after register")
	return ""
}

// createPoll creates a poll through the API and returns its ID.
func (e *testEnv) createPoll(t *testing.T, token, question string, options ...string) string {
	t.Helper()
	form := url.Values{}
	form.Set("question", question)
	for _, o := range options {
		form.Add("options", o)
	}
	form.Set("require_authentication", "false")

	w, body := e.do(t, http.MethodPost, "/api/polls", token, form)
	require.Equal(t, http.StatusCreated, w.Code, "create poll failed: %s", w.Body.String())

	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "missing poll payload")
	id, _ := data["id"].(string)
	require.NotEmpty(t, id)
	return id
}

// makeAdmin flags an account as admin directly in the store, the way an
// operator would.
func (e *testEnv) makeAdmin(t *testing.T, email string) {
	t.Helper()
	var user models.User
	require.NoError(t, e.db.First(&user, "email = ?", email).Error)
	user.Metadata.IsAdmin = true
	require.NoError(t, e.db.Save(&user).Error)
}

// ageSession pushes a session's creation time into the past.
func (e *testEnv) ageSession(t *testing.T, token string, age time.Duration) {
	t.Helper()
	require.NoError(t, e.db.Model(&models.Session{}).
		Where("token = ?", token).
		Update("created_at", time.Now().Add(-age)).Error)
}
