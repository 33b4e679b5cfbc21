package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/mapas-backend/internal/access"
	"github.com/angelmondragon/mapas-backend/internal/auth/providers"
	"github.com/angelmondragon/mapas-backend/internal/notifications"
	"github.com/angelmondragon/mapas-backend/internal/users"
	pkgAuth "github.com/angelmondragon/mapas-backend/pkg/auth"
	"github.com/angelmondragon/mapas-backend/pkg/config"
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mapas-backend/pkg/errors"
	"github.com/angelmondragon/mapas-backend/pkg/security"
	"gorm.io/gorm"
)

var loginNow = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

type fakeStore struct {
	users    map[int64]*models.User
	meta     map[int64]map[string]string
	nextID   int64
	metaErr  error
	deleted  []int64
	creators []access.Actor
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[int64]*models.User{}, meta: map[int64]map[string]string{}}
}

func (f *fakeStore) Create(ctx context.Context, actor access.Actor, input users.CreateInput) (*models.User, error) {
	f.creators = append(f.creators, actor)
	f.nextID++
	ids := map[string]int16{providers.Local: 1, providers.Fake: 2}
	user := &models.User{
		ID:           f.nextID,
		Email:        input.Email,
		AuthProvider: ids[input.Provider],
		Status:       enums.StatusEnabled,
		Profile:      &models.Agent{ID: f.nextID + 100, Name: input.ProfileName},
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if user, ok := f.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) FindByEmail(ctx context.Context, provider int16, email string) (*models.User, error) {
	for _, user := range f.users {
		if user.AuthProvider == provider && user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	f.users[id].LastLoginTimestamp = &at
	return nil
}

func (f *fakeStore) GetMeta(ctx context.Context, userID int64, key string) (string, bool, error) {
	value, ok := f.meta[userID][key]
	return value, ok, nil
}

func (f *fakeStore) SetMeta(ctx context.Context, userID int64, key, value string) error {
	if f.metaErr != nil {
		return f.metaErr
	}
	if f.meta[userID] == nil {
		f.meta[userID] = map[string]string{}
	}
	f.meta[userID][key] = value
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	delete(f.users, id)
	return nil
}

type fakeGenerator struct {
	calls     int
	seenLogin *time.Time
	err       error
}

func (f *fakeGenerator) Generate(ctx context.Context, req notifications.Request) (notifications.Result, error) {
	f.calls++
	f.seenLogin = req.User.LastLoginTimestamp
	return notifications.Result{Created: 2}, f.err
}

type fakeSessions struct {
	accessID string
	userID   int64
}

func (f *fakeSessions) Generate(ctx context.Context, accessID string, userID int64) (string, error) {
	f.accessID = accessID
	f.userID = userID
	return "refresh-" + accessID, nil
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
		MinLength:        8,
	}
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "mapas", ExpirationMinutes: 30}
}

type harness struct {
	svc       Service
	store     *fakeStore
	generator *fakeGenerator
	sessions  *fakeSessions
}

func newHarness(t *testing.T, mutate func(*ServiceParams)) harness {
	t.Helper()
	registry, err := providers.NewRegistry([]string{providers.Local, providers.Fake})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	h := harness{store: newFakeStore(), generator: &fakeGenerator{}, sessions: &fakeSessions{}}
	params := ServiceParams{
		Users:           h.store,
		UserRepo:        h.store,
		Providers:       registry,
		Generator:       h.generator,
		SessionManager:  h.sessions,
		JWTConfig:       testJWTConfig(),
		PasswordConfig:  testPasswordConfig(),
		AuthConfig:      config.AuthConfig{DefaultProvider: providers.Local},
		GenerateOnLogin: true,
		OpenRegister:    true,
		BaseURL:         "https://mapa.example.org",
		Now:             func() time.Time { return loginNow },
	}
	if mutate != nil {
		mutate(&params)
	}
	h.svc, err = NewService(params)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return h
}

func TestRegisterStoresPasswordHash(t *testing.T) {
	h := newHarness(t, nil)
	subsite := int64(4)

	dto, err := h.svc.Register(context.Background(), RegisterRequest{
		Email:       "  Maria@Example.org ",
		Password:    "correct horse",
		ProfileName: "Maria",
		SubsiteID:   &subsite,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if dto.Email != "maria@example.org" || dto.Profile == nil || dto.Profile.Name != "Maria" {
		t.Fatalf("unexpected dto %+v", dto)
	}
	if len(h.store.creators) != 1 || !h.store.creators[0].IsAnonymous() || *h.store.creators[0].SubsiteID != subsite {
		t.Fatalf("expected anonymous creator in subsite, got %+v", h.store.creators)
	}
	hash := h.store.meta[dto.ID][PasswordMetaKey]
	ok, err := security.VerifyPassword("correct horse", hash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.svc.Register(ctx, RegisterRequest{Email: "a@b.org", Password: "short", ProfileName: "A"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := h.svc.Register(ctx, RegisterRequest{Email: "a@b.org", Password: "long enough", ProfileName: "A"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err = h.svc.Register(ctx, RegisterRequest{Email: "A@b.org", Password: "long enough", ProfileName: "A"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterClosed(t *testing.T) {
	h := newHarness(t, func(p *ServiceParams) { p.OpenRegister = false })
	_, err := h.svc.Register(context.Background(), RegisterRequest{Email: "a@b.org", Password: "long enough", ProfileName: "A"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRegisterRemovesUserWhenPasswordStoreFails(t *testing.T) {
	h := newHarness(t, nil)
	h.store.metaErr = errors.New("db down")

	_, err := h.svc.Register(context.Background(), RegisterRequest{Email: "a@b.org", Password: "long enough", ProfileName: "A"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if len(h.store.deleted) != 1 || len(h.store.users) != 0 {
		t.Fatalf("expected orphan user removed, deleted=%v", h.store.deleted)
	}
}

func TestLoginLocalGeneratesNotificationsBeforeRecordingLogin(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	dto, err := h.svc.Register(ctx, RegisterRequest{Email: "maria@example.org", Password: "correct horse", ProfileName: "Maria"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	previous := loginNow.Add(-40 * 24 * time.Hour)
	h.store.users[dto.ID].LastLoginTimestamp = &previous

	resp, err := h.svc.Login(ctx, LoginRequest{Email: "Maria@example.org", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if h.generator.calls != 1 || h.generator.seenLogin == nil || !h.generator.seenLogin.Equal(previous) {
		t.Fatalf("generator should see the previous login, got %v", h.generator.seenLogin)
	}
	if resp.Notified != 2 {
		t.Fatalf("expected 2 notifications reported, got %d", resp.Notified)
	}
	if got := h.store.users[dto.ID].LastLoginTimestamp; got == nil || !got.Equal(loginNow) {
		t.Fatalf("last login not updated, got %v", got)
	}
	if resp.User.LastLoginTimestamp == nil || !resp.User.LastLoginTimestamp.Equal(loginNow) {
		t.Fatalf("response should carry the new login, got %+v", resp.User)
	}

	claims, err := pkgAuth.ParseAccessTokenAllowExpired(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != dto.ID || claims.Provider != providers.Local || claims.ID != h.sessions.accessID {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if resp.RefreshToken != "refresh-"+claims.ID || h.sessions.userID != dto.ID {
		t.Fatalf("unexpected refresh token %q", resp.RefreshToken)
	}
}

func TestLoginLocalRejectsBadCredentials(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	dto, err := h.svc.Register(ctx, RegisterRequest{Email: "maria@example.org", Password: "correct horse", ProfileName: "Maria"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	cases := map[string]LoginRequest{
		"wrong password":   {Email: "maria@example.org", Password: "wrong horse"},
		"unknown email":    {Email: "joao@example.org", Password: "correct horse"},
		"empty password":   {Email: "maria@example.org"},
		"unknown provider": {Provider: "github", Email: "maria@example.org", Password: "correct horse"},
	}
	for name, req := range cases {
		if _, err := h.svc.Login(ctx, req); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("%s: expected unauthorized, got %v", name, err)
		}
	}

	h.store.users[dto.ID].Status = enums.StatusDisabled
	if _, err := h.svc.Login(ctx, LoginRequest{Email: "maria@example.org", Password: "correct horse"}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("disabled user should not log in, got %v", err)
	}
	if h.generator.calls != 0 {
		t.Fatalf("failed logins must not generate notifications")
	}
}

func TestLoginFakeCreatesUser(t *testing.T) {
	h := newHarness(t, func(p *ServiceParams) { p.FakeAuth = true })
	ctx := context.Background()

	resp, err := h.svc.Login(ctx, LoginRequest{Provider: "Fake", Email: "dev@example.org"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.User.Profile == nil || resp.User.Profile.Name != "dev" {
		t.Fatalf("expected profile named after the email, got %+v", resp.User.Profile)
	}

	again, err := h.svc.Login(ctx, LoginRequest{Provider: providers.Fake, Email: "dev@example.org"})
	if err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if again.User.ID != resp.User.ID || len(h.store.creators) != 1 {
		t.Fatalf("second login should reuse the account")
	}
}

func TestLoginFakeDisabled(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.svc.Login(context.Background(), LoginRequest{Provider: providers.Fake, Email: "dev@example.org"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginSurvivesGeneratorFailure(t *testing.T) {
	h := newHarness(t, func(p *ServiceParams) { p.FakeAuth = true })
	h.generator.err = errors.New("partial failure")

	if _, err := h.svc.Login(context.Background(), LoginRequest{Provider: providers.Fake, Email: "dev@example.org"}); err != nil {
		t.Fatalf("Login should succeed, got %v", err)
	}
}

func TestLoginWithoutNotifications(t *testing.T) {
	h := newHarness(t, func(p *ServiceParams) {
		p.FakeAuth = true
		p.GenerateOnLogin = false
	})
	resp, err := h.svc.Login(context.Background(), LoginRequest{Provider: providers.Fake, Email: "dev@example.org"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if h.generator.calls != 0 || resp.Notified != 0 {
		t.Fatalf("generator should not run")
	}
}

func TestNewServiceRequiresRegisteredDefaultProvider(t *testing.T) {
	registry, err := providers.NewRegistry([]string{providers.Local})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	store := newFakeStore()
	_, err = NewService(ServiceParams{
		Users:          store,
		UserRepo:       store,
		Providers:      registry,
		SessionManager: &fakeSessions{},
		AuthConfig:     config.AuthConfig{DefaultProvider: "github"},
	})
	if err == nil {
		t.Fatal("expected error for unknown default provider")
	}
}
