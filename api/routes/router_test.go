package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/mapas-backend/internal/access"
	"github.com/angelmondragon/mapas-backend/internal/entities"
	"github.com/angelmondragon/mapas-backend/internal/notifications"
	"github.com/angelmondragon/mapas-backend/internal/users"
	pkgAuth "github.com/angelmondragon/mapas-backend/pkg/auth"
	"github.com/angelmondragon/mapas-backend/pkg/auth/session"
	"github.com/angelmondragon/mapas-backend/pkg/config"
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
	"github.com/angelmondragon/mapas-backend/pkg/logger"
	"github.com/angelmondragon/mapas-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

func (stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (session.Rotation, error) {
	return session.Rotation{}, session.ErrInvalidRefreshToken
}

func (stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	return nil
}

type stubActors struct{}

func (stubActors) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return &models.User{ID: id, Email: "ana@example.org", Status: enums.StatusEnabled}, nil
}

// stubUsers records the entity kind the router resolved.
type stubUsers struct {
	users.Service
	kind    enums.EntityKind
	control bool
}

func (s *stubUsers) Get(ctx context.Context, actor access.Actor, id int64) (*models.User, error) {
	return &models.User{ID: id, Status: enums.StatusEnabled}, nil
}

func (s *stubUsers) Entities(ctx context.Context, actor access.Actor, userID int64, kind enums.EntityKind, status *enums.Status) ([]entities.Record, error) {
	s.kind = kind
	return nil, nil
}

func (s *stubUsers) Agents(ctx context.Context, actor access.Actor, userID int64, status *enums.Status) ([]entities.Record, error) {
	s.kind = enums.EntityKindAgent
	return nil, nil
}

func (s *stubUsers) HasControl(ctx context.Context, actor access.Actor, userID int64, kind enums.EntityKind) ([]entities.Record, error) {
	s.kind = kind
	s.control = true
	return nil, nil
}

type stubNotifications struct {
	userID int64
}

func (s *stubNotifications) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	s.userID = params.UserID
	return &notifications.ListResult{}, nil
}

func (s *stubNotifications) MarkRead(ctx context.Context, userID, notificationID int64) error {
	return nil
}

func (s *stubNotifications) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0", Locale: "pt-BR", CORSOrigins: []string{"https://mapa.example.org"}},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

type testRouter struct {
	handler       http.Handler
	users         *stubUsers
	notifications *stubNotifications
	registry      *prometheus.Registry
}

func newTestRouter(cfg *config.Config) testRouter {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	reg := prometheus.NewRegistry()
	tr := testRouter{users: &stubUsers{}, notifications: &stubNotifications{}, registry: reg}
	tr.handler = NewRouter(Params{
		Config:        cfg,
		Logger:        logg,
		Gatherer:      reg,
		HTTPMetrics:   metrics.NewHTTPMetrics(reg),
		DB:            stubPinger{},
		Redis:         stubPinger{},
		Sessions:      stubSessionManager{},
		Actors:        stubActors{},
		Users:         tr.users,
		Notifications: tr.notifications,
	})
	return tr
}

func buildToken(t *testing.T, cfg *config.Config, userID int64) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   userID,
		Provider: "local",
		JTI:      session.NewAccessID(),
	})
	require.NoError(t, err)
	return token
}

func TestHealthLive(t *testing.T) {
	tr := newTestRouter(testConfig())
	resp := httptest.NewRecorder()
	tr.handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotEmpty(t, resp.Header().Get("X-Request-Id"))
	require.Equal(t, "pt-BR", resp.Header().Get("Content-Language"))
}

func TestNotificationsRequireJWT(t *testing.T) {
	cfg := testConfig()
	tr := newTestRouter(cfg)

	resp := httptest.NewRecorder()
	tr.handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, 12))
	resp = httptest.NewRecorder()
	tr.handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, int64(12), tr.notifications.userID)
}

func TestMeRequiresUser(t *testing.T) {
	cfg := testConfig()
	tr := newTestRouter(cfg)

	resp := httptest.NewRecorder()
	tr.handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, 12))
	resp = httptest.NewRecorder()
	tr.handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"id":12`)
}

func TestUserCollectionsRouteByKind(t *testing.T) {
	cases := []struct {
		path    string
		kind    enums.EntityKind
		control bool
	}{
		{path: "/api/v1/users/9/spaces", kind: enums.EntityKindSpace},
		{path: "/api/v1/users/9/events?status=draft", kind: enums.EntityKindEvent},
		{path: "/api/v1/users/9/agents", kind: enums.EntityKindAgent},
		{path: "/api/v1/users/9/agents/controlled", kind: enums.EntityKindAgent, control: true},
		{path: "/api/v1/users/9/projects/controlled", kind: enums.EntityKindProject, control: true},
	}
	for _, tc := range cases {
		tr := newTestRouter(testConfig())
		resp := httptest.NewRecorder()
		tr.handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, tc.path, nil))
		require.Equal(t, http.StatusOK, resp.Code, tc.path)
		require.Equal(t, tc.kind, tr.users.kind, tc.path)
		require.Equal(t, tc.control, tr.users.control, tc.path)
	}
}

func TestMutationsRequireUser(t *testing.T) {
	tr := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/9/roles", strings.NewReader(`{"role":"admin"}`))
	resp := httptest.NewRecorder()
	tr.handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	tr := newTestRouter(testConfig())
	tr.handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	resp := httptest.NewRecorder()
	tr.handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "mapas_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	tr := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/users/me", nil)
	req.Header.Set("Origin", "https://mapa.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp := httptest.NewRecorder()
	tr.handler.ServeHTTP(resp, req)
	require.Equal(t, "https://mapa.example.org", resp.Header().Get("Access-Control-Allow-Origin"))
}
