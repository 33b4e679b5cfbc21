package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/mapas-backend/internal/access"
	"github.com/angelmondragon/mapas-backend/internal/auth/providers"
	"github.com/angelmondragon/mapas-backend/internal/notifications"
	"github.com/angelmondragon/mapas-backend/internal/users"
	pkgAuth "github.com/angelmondragon/mapas-backend/pkg/auth"
	"github.com/angelmondragon/mapas-backend/pkg/auth/session"
	"github.com/angelmondragon/mapas-backend/pkg/config"
	"github.com/angelmondragon/mapas-backend/pkg/db"
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mapas-backend/pkg/errors"
	"github.com/angelmondragon/mapas-backend/pkg/logger"
	"github.com/angelmondragon/mapas-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"

	// PasswordMetaKey holds the Argon2id hash of a local account.
	PasswordMetaKey = users.ProtectedMetaPrefix + "Password"
)

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
}

type userCreator interface {
	Create(ctx context.Context, actor access.Actor, input users.CreateInput) (*models.User, error)
}

type userRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, provider int16, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	GetMeta(ctx context.Context, userID int64, key string) (string, bool, error)
	SetMeta(ctx context.Context, userID int64, key, value string) error
	Delete(ctx context.Context, id int64) error
}

type notificationGenerator interface {
	Generate(ctx context.Context, req notifications.Request) (notifications.Result, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string, userID int64) (string, error)
}

type service struct {
	users         userCreator
	repo          userRepository
	providers     *providers.Registry
	generator     notificationGenerator
	session       sessionManager
	jwtCfg        config.JWTConfig
	passwordCfg   config.PasswordConfig
	notifyOnLogin bool
	openRegister  bool
	fakeAuth      bool
	defaultName   string
	baseURL       string
	logg          *logger.Logger
	now           func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users           userCreator
	UserRepo        userRepository
	Providers       *providers.Registry
	Generator       notificationGenerator
	SessionManager  sessionManager
	JWTConfig       config.JWTConfig
	PasswordConfig  config.PasswordConfig
	AuthConfig      config.AuthConfig
	GenerateOnLogin bool
	OpenRegister    bool
	// FakeAuth enables the passwordless provider; only set it in dev.
	FakeAuth bool
	BaseURL  string
	Logger   *logger.Logger
	Now      func() time.Time
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("users service is required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Providers == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.GenerateOnLogin && params.Generator == nil {
		return nil, fmt.Errorf("notification generator is required when generating on login")
	}
	defaultName := strings.ToLower(strings.TrimSpace(params.AuthConfig.DefaultProvider))
	if defaultName == "" {
		defaultName = providers.Local
	}
	if !params.Providers.Has(defaultName) {
		return nil, fmt.Errorf("default auth provider %q is not registered", defaultName)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:         params.Users,
		repo:          params.UserRepo,
		providers:     params.Providers,
		generator:     params.Generator,
		session:       params.SessionManager,
		jwtCfg:        params.JWTConfig,
		passwordCfg:   params.PasswordConfig,
		notifyOnLogin: params.GenerateOnLogin,
		openRegister:  params.OpenRegister,
		fakeAuth:      params.FakeAuth,
		defaultName:   defaultName,
		baseURL:       params.BaseURL,
		logg:          params.Logger,
		now:           now,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	if !s.openRegister {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "registration is closed")
	}
	providerID, ok := s.providers.IDOf(providers.Local)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "local authentication is disabled")
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if err := security.CheckPolicy(req.Password, s.passwordCfg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "password does not meet policy")
	}

	if _, err := s.repo.FindByEmail(ctx, providerID, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, access.Anonymous(req.SubsiteID), users.CreateInput{
		Provider:    providers.Local,
		Email:       email,
		ProfileName: req.ProfileName,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetMeta(ctx, user.ID, PasswordMetaKey, hash); err != nil {
		// A user without a password cannot log in; drop it so the email can register again.
		if delErr := s.repo.Delete(ctx, user.ID); delErr != nil {
			s.logError(ctx, user.ID, "failed to remove user after password store failure", delErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store password")
	}

	return s.loadDTO(ctx, user.ID)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	name := strings.ToLower(strings.TrimSpace(req.Provider))
	if name == "" {
		name = s.defaultName
	}
	providerID, ok := s.providers.IDOf(name)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	var (
		user *models.User
		err  error
	)
	switch name {
	case providers.Local:
		user, err = s.authenticateLocal(ctx, providerID, req.Email, req.Password)
	case providers.Fake:
		user, err = s.authenticateFake(ctx, providerID, req)
	default:
		err = pkgerrors.Newf(pkgerrors.CodeValidation, "provider %s does not support password login", name)
	}
	if err != nil {
		return nil, err
	}
	if user.Status != enums.StatusEnabled {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	return s.completeLogin(ctx, user, name, req)
}

func (s *service) authenticateLocal(ctx context.Context, providerID int16, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.repo.FindByEmail(ctx, providerID, email)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	hash, found, err := s.repo.GetMeta(ctx, user.ID, PasswordMetaKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load password")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	valid, err := security.VerifyPassword(password, hash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

// authenticateFake trusts the email and creates the account when missing.
func (s *service) authenticateFake(ctx context.Context, providerID int16, req LoginRequest) (*models.User, error) {
	if !s.fakeAuth {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.repo.FindByEmail(ctx, providerID, email)
	if err == nil {
		return user, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	return s.users.Create(ctx, access.Anonymous(req.SubsiteID), users.CreateInput{
		Provider:    providers.Fake,
		Email:       email,
		ProfileName: name,
	})
}

// completeLogin generates the user's reminders against the previous login
// timestamp before recording the new one, then issues the token pair.
func (s *service) completeLogin(ctx context.Context, user *models.User, provider string, req LoginRequest) (*LoginResponse, error) {
	now := s.now().UTC()

	created := 0
	if s.notifyOnLogin {
		result, err := s.generator.Generate(ctx, notifications.Request{
			User:   user,
			Parts:  notifications.AllParts,
			Locale: req.Locale,
		})
		if err != nil {
			s.logWarn(ctx, user.ID, "login notifications partially failed", err)
		}
		created = result.Created
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}

	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:   user.ID,
		Provider: provider,
		JTI:      accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	refreshToken, err := s.session.Generate(ctx, accessID, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}

	dto, err := s.loadDTO(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         dto,
		Notified:     created,
	}, nil
}

func (s *service) loadDTO(ctx context.Context, userID int64) (*users.UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return users.FromModel(user, s.baseURL), nil
}

func (s *service) logWarn(ctx context.Context, userID int64, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithUserID(ctx, userID), fmt.Sprintf("%s: %v", msg, err))
}

func (s *service) logError(ctx context.Context, userID int64, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(s.logg.WithUserID(ctx, userID), msg, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
