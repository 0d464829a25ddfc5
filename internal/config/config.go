package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	MigrateOnStart     bool
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StorageConfig selects where uploaded binaries live.
// Backend is "local" (files under LocalRoot) or "minio".
type StorageConfig struct {
	Backend   string
	LocalRoot string
	MinIO     MinIOConfig
}

// AuthConfig holds token signing and cookie settings.
type AuthConfig struct {
	AccessSecret      string
	RefreshSecret     string
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	AccessCookieName  string
	RefreshCookieName string
	SecureCookies     bool
}

// LogConfig controls the zap logger and optional file rotation.
type LogConfig struct {
	Level      string
	Output     string // stdout, file, both
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// EditorConfig holds settings for the ffmpeg-backed media editor.
type EditorConfig struct {
	FfmpegPath  string
	FfprobePath string
	WorkDir     string
	// StaleAfter is the age past which a leftover workspace is removed at start-up.
	StaleAfter time.Duration
}

// FetchConfig holds settings for downloading remote media.
type FetchConfig struct {
	YtDlpPath string
	Timeout   time.Duration
	MaxBytes  int64
}

// SweeperConfig controls the periodic orphan-file sweep.
type SweeperConfig struct {
	Enabled  bool
	Interval time.Duration
	Grace    time.Duration
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Env         string
	AppHost     string
	Port        string
	BodyLimitMB int
	Database    DatabaseConfig
	Storage     StorageConfig
	Auth        AuthConfig
	Log         LogConfig
	Editor      EditorConfig
	Fetch       FetchConfig
	Sweeper     SweeperConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	env := getEnv("APP_ENV", "development")
	return &AppConfig{
		Env:         env,
		AppHost:     getEnv("APP_HOST", "localhost:8080"),
		Port:        getEnv("PORT", "8080"),
		BodyLimitMB: getEnvInt("BODY_LIMIT_MB", 512),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			MigrateOnStart:     getEnvBool("MIGRATE_ON_START", true),
		},
		Storage: StorageConfig{
			Backend:   getEnv("STORAGE_BACKEND", "local"),
			LocalRoot: getEnv("STORAGE_LOCAL_ROOT", "public"),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", ""),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
		},
		Auth: AuthConfig{
			AccessSecret:      getEnv("ACCESS_SECRET", ""),
			RefreshSecret:     getEnv("REFRESH_SECRET", ""),
			AccessTTL:         getEnvDuration("ACCESS_TTL", 15*time.Minute),
			RefreshTTL:        getEnvDuration("REFRESH_TTL", 7*24*time.Hour),
			AccessCookieName:  "accessToken",
			RefreshCookieName: "refreshToken",
			SecureCookies:     env == "production",
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Output:     getEnv("LOG_OUTPUT", "stdout"),
			FilePath:   getEnv("LOG_FILE", "logs/mediavault.log"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Editor: EditorConfig{
			FfmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
			FfprobePath: getEnv("FFPROBE_PATH", "ffprobe"),
			WorkDir:     getEnv("EDITOR_WORK_DIR", os.TempDir()),
			StaleAfter:  getEnvDuration("EDITOR_STALE_AFTER", 6*time.Hour),
		},
		Fetch: FetchConfig{
			YtDlpPath: getEnv("YTDLP_PATH", ""),
			Timeout:   getEnvDuration("FETCH_TIMEOUT", 10*time.Minute),
			MaxBytes:  int64(getEnvInt("FETCH_MAX_MB", 2048)) << 20,
		},
		Sweeper: SweeperConfig{
			Enabled:  getEnvBool("SWEEP_ENABLED", false),
			Interval: getEnvDuration("SWEEP_INTERVAL", time.Hour),
			Grace:    getEnvDuration("SWEEP_GRACE", 24*time.Hour),
		},
	}
}

// Validate reports settings the server cannot run without.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Auth.AccessSecret == "" {
		errs = append(errs, errors.New("ACCESS_SECRET is required"))
	}
	if c.Auth.RefreshSecret == "" {
		errs = append(errs, errors.New("REFRESH_SECRET is required"))
	}
	if c.Auth.AccessSecret != "" && c.Auth.AccessSecret == c.Auth.RefreshSecret {
		errs = append(errs, errors.New("ACCESS_SECRET and REFRESH_SECRET must differ"))
	}
	switch c.Storage.Backend {
	case "local", "minio":
	default:
		errs = append(errs, errors.New("STORAGE_BACKEND must be local or minio"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether APP_ENV is production.
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
