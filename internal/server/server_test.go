package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"uboard/internal/config"
	"uboard/internal/models"
	"uboard/internal/repository"
	"uboard/internal/service"
	"uboard/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// envelope mirrors models.Envelope with a raw result for typed decoding.
type envelope struct {
	Status int `json:"status"`
	Data   struct {
		Result  json.RawMessage `json:"result"`
		Message string          `json:"message"`
		Code    string          `json:"code"`
		Count   *int            `json:"count"`
		Total   *int64          `json:"total"`
	} `json:"data"`
}

// mailerStub records tokens instead of sending mail.
type mailerStub struct {
	mu      sync.Mutex
	confirm map[string]string
	reset   map[string]string
}

func (m *mailerStub) SendConfirmEmail(_ context.Context, to, token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirm[to] = token
	return true
}

func (m *mailerStub) SendResetEmail(_ context.Context, to, token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset[to] = token
	return true
}

func testConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		Env:                "test",
		AllowedOrigins:     "http://localhost:3000",
		FeatureFlags:       "uploads=off,realtime=on",
		RateLimitPerMinute: 60,
		JWTSecret:          "test-secret-that-is-long-enough-123",
		JWTIssuer:          "uboard-api",
		JWTAudience:        "uboard-client",
		JWTTTLHours:        1,
		UploadMaxSizeMB:    5,
	}
}

type testEnv struct {
	srv    *Server
	app    *fiber.App
	db     *gorm.DB
	mailer *mailerStub
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}
	db := testutil.NewTestDB(t)
	srv, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)

	mailer := &mailerStub{confirm: map[string]string{}, reset: map[string]string{}}
	srv.userService = service.NewUserService(repository.NewStore(db).Users(), mailer, srv.jwt)

	return &testEnv{srv: srv, app: srv.NewApp(), db: db, mailer: mailer}
}

func (e *testEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := e.srv.jwt.IssueToken(user.ID, time.Now())
	require.NoError(t, err)
	return token
}

// do sends a JSON request and decodes the envelope when a body is present.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := newRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return e.send(t, req)
}

func newRequest(method, path string, body io.Reader) *http.Request {
	return httptest.NewRequest(method, path, body)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func decodeResult[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data.Result, &out))
	return out
}

func TestNewServerWithDeps_RequiresDatabase(t *testing.T) {
	_, err := NewServerWithDeps(testConfig(), nil, nil)
	require.Error(t, err)

	_, err = NewServerWithDeps(nil, testutil.NewTestDB(t), nil)
	require.Error(t, err)
}

func TestLivenessAndUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(newRequest(http.MethodGet, "/health/live", nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var live map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&live))
	require.Equal(t, "up", live["status"])

	status, body := env.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, status)
	require.Equal(t, models.CodeUnauthorized, body.Data.Code)
}
