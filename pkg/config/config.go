package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Auth          AuthConfig
	Notifications NotificationsConfig
	Cron          CronConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"MAPAS_APP_ENV" required:"true"`
	Port         string   `envconfig:"MAPAS_APP_PORT" required:"true"`
	BaseURL      string   `envconfig:"MAPAS_APP_BASE_URL" default:"http://localhost:8080"`
	Locale       string   `envconfig:"MAPAS_APP_LOCALE" default:"pt-BR"`
	LogLevel     string   `envconfig:"MAPAS_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"MAPAS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"MAPAS_CORS_ORIGINS" default:"http://localhost:3000"`
	TrustProxy   bool     `envconfig:"MAPAS_TRUST_PROXY" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MAPAS_DB_DSN"`
	Driver string `envconfig:"MAPAS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MAPAS_DB_HOST"`
	LegacyPort     int    `envconfig:"MAPAS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MAPAS_DB_USER"`
	LegacyPassword string `envconfig:"MAPAS_DB_PASSWORD"`
	LegacyName     string `envconfig:"MAPAS_DB_NAME"`
	LegacySSLMode  string `envconfig:"MAPAS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MAPAS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MAPAS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MAPAS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MAPAS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"MAPAS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MAPAS_REDIS_ADDR"`
	Password     string        `envconfig:"MAPAS_REDIS_PASSWORD"`
	DB           int           `envconfig:"MAPAS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MAPAS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MAPAS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MAPAS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MAPAS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MAPAS_REDIS_WRITE_TIMEOUT" default:"5s"`
	SubsiteTTL   time.Duration `envconfig:"MAPAS_REDIS_SUBSITE_TTL" default:"5m"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"MAPAS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"MAPAS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"MAPAS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"MAPAS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MAPAS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MAPAS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MAPAS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MAPAS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MAPAS_ARGON_KEY_LEN" default:"32"`
	MinLength        int `envconfig:"MAPAS_PASSWORD_MIN_LENGTH" default:"8"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"MAPAS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"MAPAS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"MAPAS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"MAPAS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"MAPAS_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"MAPAS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// AuthConfig lists the registered authentication providers. Provider ids
// are assigned from 1 in declaration order, so the list is append-only once
// users exist.
type AuthConfig struct {
	Providers       []string `envconfig:"MAPAS_AUTH_PROVIDERS" default:"local"`
	DefaultProvider string   `envconfig:"MAPAS_AUTH_DEFAULT_PROVIDER" default:"local"`
}

// NotificationsConfig mirrors the notification plugin switches.
type NotificationsConfig struct {
	PluginsEnabled     []string      `envconfig:"MAPAS_PLUGINS_ENABLED" default:"notifications"`
	UserAccessDays     int           `envconfig:"MAPAS_NOTIFICATIONS_USER_ACCESS" default:"0"`
	EntitiesUpdateDays int           `envconfig:"MAPAS_NOTIFICATIONS_ENTITIES_UPDATE" default:"0"`
	SealToExpireDays   int           `envconfig:"MAPAS_NOTIFICATIONS_SEAL_TO_EXPIRE" default:"0"`
	RetentionDays      int           `envconfig:"MAPAS_NOTIFICATIONS_RETENTION_DAYS" default:"90"`
	GenerateOnLogin    bool          `envconfig:"MAPAS_NOTIFICATIONS_GENERATE_ON_LOGIN" default:"true"`
	BatchInterval      time.Duration `envconfig:"MAPAS_NOTIFICATIONS_BATCH_INTERVAL" default:"24h"`
}

// PluginEnabled reports whether the notifications plugin is switched on.
func (n NotificationsConfig) PluginEnabled() bool {
	return slices.ContainsFunc(n.PluginsEnabled, func(name string) bool {
		return strings.EqualFold(strings.TrimSpace(name), NotificationsPlugin)
	})
}

type CronConfig struct {
	Interval  time.Duration `envconfig:"MAPAS_CRON_INTERVAL" default:"24h"`
	LockTTL   time.Duration `envconfig:"MAPAS_CRON_LOCK_TTL" default:"25h"`
	BatchSize int           `envconfig:"MAPAS_CRON_BATCH_SIZE" default:"200"`
}

type FeatureFlagsConfig struct {
	UseSQLite    bool `envconfig:"MAPAS_USE_SQLITE" default:"false"`
	AutoMigrate  bool `envconfig:"MAPAS_AUTO_MIGRATE" default:"false"`
	FakeAuth     bool `envconfig:"MAPAS_FEATURE_FAKE_AUTH" default:"false"`
	OpenRegister bool `envconfig:"MAPAS_FEATURE_OPEN_REGISTER" default:"true"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
