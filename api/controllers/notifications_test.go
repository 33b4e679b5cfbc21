package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/mapas-backend/api/middleware"
	"github.com/angelmondragon/mapas-backend/internal/access"
	"github.com/angelmondragon/mapas-backend/internal/notifications"
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
	"github.com/angelmondragon/mapas-backend/pkg/i18n"
	"github.com/angelmondragon/mapas-backend/pkg/logger"
)

type testNotificationsService struct {
	markReadFn    func(ctx context.Context, userID, notificationID int64) error
	markAllReadFn func(ctx context.Context, userID int64) (int64, error)
	listFn        func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
}

func (s *testNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &notifications.ListResult{}, nil
}

func (s *testNotificationsService) MarkRead(ctx context.Context, userID, notificationID int64) error {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, userID, notificationID)
	}
	return nil
}

func (s *testNotificationsService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	if s.markAllReadFn != nil {
		return s.markAllReadFn(ctx, userID)
	}
	return 0, nil
}

type testGenerator struct {
	seen   notifications.Request
	result notifications.Result
	err    error
}

func (g *testGenerator) Generate(ctx context.Context, req notifications.Request) (notifications.Result, error) {
	g.seen = req
	return g.result, g.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withActor(req *http.Request, userID int64) *http.Request {
	actor := access.ForUser(&models.User{ID: userID, Status: enums.StatusEnabled}, nil)
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.RouteContext(req.Context())
	if routeCtx == nil {
		routeCtx = chi.NewRouteContext()
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	}
	routeCtx.URLParams.Add(key, value)
	return req
}

func TestMarkNotificationReadSuccess(t *testing.T) {
	called := false
	svc := &testNotificationsService{
		markReadFn: func(ctx context.Context, userID, notificationID int64) error {
			called = true
			require.Equal(t, int64(3), userID)
			require.Equal(t, int64(41), notificationID)
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/41/read", nil)
	req = addRouteParam(withActor(req, 3), "notificationId", "41")
	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, called)
	var envelope struct {
		Data map[string]bool `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.True(t, envelope.Data["read"])
}

func TestMarkNotificationReadInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/abc/read", nil)
	req = addRouteParam(withActor(req, 3), "notificationId", "abc")
	resp := httptest.NewRecorder()
	MarkNotificationRead(&testNotificationsService{}, testLogger())(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMarkAllNotificationsRead(t *testing.T) {
	svc := &testNotificationsService{
		markAllReadFn: func(ctx context.Context, userID int64) (int64, error) {
			require.Equal(t, int64(3), userID)
			return 4, nil
		},
	}
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read-all", nil), 3)
	resp := httptest.NewRecorder()
	MarkAllNotificationsRead(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data map[string]int64 `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Equal(t, int64(4), envelope.Data["updated"])
}

func TestListNotificationsParsesQuery(t *testing.T) {
	var got notifications.ListParams
	svc := &testNotificationsService{
		listFn: func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
			got = params
			return &notifications.ListResult{Items: []models.Notification{{ID: 1, UserID: 3}}, Cursor: "next"}, nil
		},
	}
	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/notifications?status=unread&limit=5&cursor=abc", nil), 3)
	resp := httptest.NewRecorder()
	ListNotifications(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, int64(3), got.UserID)
	require.Equal(t, 5, got.Limit)
	require.Equal(t, "abc", got.Cursor)
	require.NotNil(t, got.Status)
	require.Equal(t, enums.NotificationStatusUnread, *got.Status)
}

func TestListNotificationsRejectsBadQuery(t *testing.T) {
	for _, target := range []string{"/api/v1/notifications?status=maybe", "/api/v1/notifications?limit=0"} {
		req := withActor(httptest.NewRequest(http.MethodGet, target, nil), 3)
		resp := httptest.NewRecorder()
		ListNotifications(&testNotificationsService{}, testLogger())(resp, req)
		require.Equal(t, http.StatusBadRequest, resp.Code, target)
	}
}

func TestGenerateNotifications(t *testing.T) {
	gen := &testGenerator{result: notifications.Result{Created: 2}}
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/notifications/generate", nil), 3)
	req = req.WithContext(middleware.WithLocale(req.Context(), i18n.EnglishUS))
	resp := httptest.NewRecorder()
	GenerateNotifications(gen, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, int64(3), gen.seen.User.ID)
	require.Equal(t, notifications.AllParts, gen.seen.Parts)
	require.Equal(t, i18n.EnglishUS, gen.seen.Locale)
}

func TestGenerateNotificationsPartialFailure(t *testing.T) {
	gen := &testGenerator{result: notifications.Result{Created: 1}, err: errors.New("one failed")}
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/notifications/generate", nil), 3)
	resp := httptest.NewRecorder()
	GenerateNotifications(gen, testLogger())(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	gen = &testGenerator{err: errors.New("db down")}
	resp = httptest.NewRecorder()
	GenerateNotifications(gen, testLogger())(resp, req)
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
