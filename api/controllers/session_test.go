package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/mapas-backend/pkg/auth"
	"github.com/angelmondragon/mapas-backend/pkg/auth/session"
	"github.com/angelmondragon/mapas-backend/pkg/config"
	"github.com/stretchr/testify/require"
)

type stubSessionTokenManager struct {
	lastRevoked    []string
	lastRotateOld  string
	lastRotateBody string
	rotation       session.Rotation
	rotateErr      error
	revokeErr      error
}

func (s *stubSessionTokenManager) Rotate(ctx context.Context, oldAccessID, provided string) (session.Rotation, error) {
	s.lastRotateOld = oldAccessID
	s.lastRotateBody = provided
	return s.rotation, s.rotateErr
}

func (s *stubSessionTokenManager) Revoke(ctx context.Context, accessID string) error {
	s.lastRevoked = append(s.lastRevoked, accessID)
	return s.revokeErr
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 10}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID int64) (string, string) {
	t.Helper()
	accessID := session.NewAccessID()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		UserID:   userID,
		Provider: "local",
		JTI:      accessID,
	})
	require.NoError(t, err)
	return token, accessID
}

func TestAuthLogout(t *testing.T) {
	cfg := testJWTConfig()
	manager := &stubSessionTokenManager{}
	handler := AuthLogout(manager, cfg, nil)

	token, jti := mintTestToken(t, cfg, 7)
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{jti}, manager.lastRevoked)
}

func TestAuthLogoutRequiresToken(t *testing.T) {
	handler := AuthLogout(&stubSessionTokenManager{}, testJWTConfig(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRefresh(t *testing.T) {
	cfg := testJWTConfig()
	manager := &stubSessionTokenManager{
		rotation: session.Rotation{UserID: 7, AccessID: "new-jti", RefreshToken: "new-refresh"},
	}
	handler := AuthRefresh(manager, cfg, nil)

	token, jti := mintTestToken(t, cfg, 7)
	req := httptest.NewRequest(http.MethodPost, "/refresh", bytes.NewBufferString(`{"refresh_token":"old-refresh"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, jti, manager.lastRotateOld)
	require.Equal(t, "old-refresh", manager.lastRotateBody)

	var envelope struct {
		Data refreshResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Equal(t, "new-refresh", envelope.Data.RefreshToken)
	require.Equal(t, envelope.Data.AccessToken, rec.Header().Get(tokenHeader))

	claims, err := auth.ParseAccessToken(cfg, envelope.Data.AccessToken)
	require.NoError(t, err)
	require.Equal(t, int64(7), claims.UserID)
	require.Equal(t, "new-jti", claims.ID)
	require.Equal(t, "local", claims.Provider)
}

func TestAuthRefreshInvalidToken(t *testing.T) {
	cfg := testJWTConfig()
	manager := &stubSessionTokenManager{rotateErr: session.ErrInvalidRefreshToken}
	handler := AuthRefresh(manager, cfg, nil)

	token, _ := mintTestToken(t, cfg, 7)
	req := httptest.NewRequest(http.MethodPost, "/refresh", bytes.NewBufferString(`{"refresh_token":"bad"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRefreshRejectsForeignSession(t *testing.T) {
	cfg := testJWTConfig()
	manager := &stubSessionTokenManager{
		rotation: session.Rotation{UserID: 99, AccessID: "new-jti", RefreshToken: "new-refresh"},
	}
	handler := AuthRefresh(manager, cfg, nil)

	token, _ := mintTestToken(t, cfg, 7)
	req := httptest.NewRequest(http.MethodPost, "/refresh", bytes.NewBufferString(`{"refresh_token":"stolen"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, []string{"new-jti"}, manager.lastRevoked)
}
