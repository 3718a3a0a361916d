package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hitoshi/homefav/internal/auth"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnMaxLife  time.Duration
	AutoMigrate    bool

	// Auth
	AuthMode             string
	OIDCUserInfoURL      string
	OIDCIntrospectionURL string
	OIDCClientID         string
	OIDCClientSecret     string
	OIDCSubjectClaim     string
	OIDCTimeout          time.Duration
	JWTSecret            string
	JWTIssuer            string
	JWTAudience          string

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitWrite   int

	// Routes
	LegacyRoutesEnabled bool
	DebugRoutesEnabled  bool
	MetricsEnabled      bool

	// Logging
	LogLevel slog.Level

	// Server
	ServerPort string

	// trueの場合のみX-Forwarded-For等からクライアントIPを決定する
	TrustProxyHeaders bool

	// CORS
	CORSAllowedOrigin string
}

// LoadDotEnv はENV_FILE（デフォルト.env）が存在すれば環境変数として読み込む。
// 既に設定されている環境変数は上書きしない。ファイルがない場合は何もしない。
func LoadDotEnv() error {
	path := getEnvString("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// 認証モードごとに必要な環境変数も検証する。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.AuthMode = strings.ToLower(getEnvString("AUTH_MODE", auth.ModeNone))
	cfg.OIDCUserInfoURL = os.Getenv("OIDC_USERINFO_URL")
	cfg.OIDCIntrospectionURL = os.Getenv("OIDC_INTROSPECTION_URL")
	cfg.OIDCClientID = os.Getenv("OIDC_CLIENT_ID")
	cfg.OIDCClientSecret = os.Getenv("OIDC_CLIENT_SECRET")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")

	switch cfg.AuthMode {
	case auth.ModeNone:
	case auth.ModeUserInfo:
		if cfg.OIDCUserInfoURL == "" {
			missing = append(missing, "OIDC_USERINFO_URL")
		}
	case auth.ModeIntrospection:
		if cfg.OIDCIntrospectionURL == "" {
			missing = append(missing, "OIDC_INTROSPECTION_URL")
		}
		if cfg.OIDCClientID == "" {
			missing = append(missing, "OIDC_CLIENT_ID")
		}
		if cfg.OIDCClientSecret == "" {
			missing = append(missing, "OIDC_CLIENT_SECRET")
		}
	case auth.ModeJWT:
		if cfg.JWTSecret == "" {
			missing = append(missing, "JWT_SECRET")
		}
	default:
		return nil, fmt.Errorf("unsupported AUTH_MODE %q (expected none, userinfo, introspection or jwt)", cfg.AuthMode)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if cfg.AuthMode == auth.ModeJWT && len(cfg.JWTSecret) < auth.MinJWTSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes", auth.MinJWTSecretLength)
	}

	level, err := ParseLogLevel(getEnvString("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	// Optional fields with defaults
	cfg.OIDCSubjectClaim = getEnvString("OIDC_SUBJECT_CLAIM", auth.DefaultSubjectClaim)
	cfg.OIDCTimeout = getEnvDuration("OIDC_TIMEOUT", 10*time.Second)
	cfg.JWTIssuer = os.Getenv("JWT_ISSUER")
	cfg.JWTAudience = os.Getenv("JWT_AUDIENCE")
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLife = getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	cfg.AutoMigrate = getEnvBool("AUTO_MIGRATE", false)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitWrite = getEnvInt("RATE_LIMIT_WRITE", 30)
	if cfg.RateLimitGeneral <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_GENERAL must be positive, got %d", cfg.RateLimitGeneral)
	}
	if cfg.RateLimitWrite <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_WRITE must be positive, got %d", cfg.RateLimitWrite)
	}
	cfg.LegacyRoutesEnabled = getEnvBool("LEGACY_ROUTES_ENABLED", true)
	cfg.DebugRoutesEnabled = getEnvBool("DEBUG_ROUTES_ENABLED", false)
	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", true)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", false)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// AuthConfig は認証関連の設定をauth.Configに変換する。
func (c *Config) AuthConfig() auth.Config {
	return auth.Config{
		Mode:             c.AuthMode,
		UserInfoURL:      c.OIDCUserInfoURL,
		IntrospectionURL: c.OIDCIntrospectionURL,
		ClientID:         c.OIDCClientID,
		ClientSecret:     c.OIDCClientSecret,
		SubjectClaim:     c.OIDCSubjectClaim,
		Timeout:          c.OIDCTimeout,
		JWTSecret:        c.JWTSecret,
		JWTIssuer:        c.JWTIssuer,
		JWTAudience:      c.JWTAudience,
	}
}

// ParseLogLevel はdebug/info/warn/errorをslog.Levelに変換する。
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
