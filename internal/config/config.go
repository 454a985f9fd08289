package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Port         string
	Environment  string // development, production
	LogLevel     string // debug, info, warn, error
	BaseURL      string
	CSRFKey      []byte
	SessionKey   []byte
	CookieDomain string
	CookieSecure bool

	// Database
	DBDriver string // sqlite or postgres
	DBDSN    string

	// Auth provider
	JWTSecret       []byte
	TokenTTL        time.Duration
	ResetLinkTTL    time.Duration
	MinPasswordLen  int
	RateLimitWindow time.Duration

	// Blob store
	BlobBackend         string // disk or cloudinary
	UploadDir           string
	MaxUploadSize       int64
	CloudinaryCloudName string
	CloudinaryPreset    string
	ProofMaxWidth       uint

	// Order drafts and submission guard
	DraftTTL  time.Duration
	LockTTL   time.Duration
	RedisAddr string
	RedisDB   int
}

// LoadConfig reads an optional .env file, then the environment. Missing keys
// are generated and reported through log.
func LoadConfig(log *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8585"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8585"),
		CookieDomain: getEnv("COOKIE_DOMAIN", ""),
		CookieSecure: getEnv("COOKIE_SECURE", "false") == "true",

		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DBDSN:    getEnv("DB_DSN", "./printease.db"),

		BlobBackend:         getEnv("BLOB_BACKEND", "disk"),
		UploadDir:           getEnv("UPLOAD_DIR", "./uploads"),
		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryPreset:    getEnv("CLOUDINARY_UPLOAD_PRESET", "unsigned_upload"),

		RedisAddr: getEnv("REDIS_ADDR", ""),
	}

	var err error
	if cfg.TokenTTL, err = getEnvDuration("TOKEN_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ResetLinkTTL, err = getEnvDuration("RESET_LINK_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = getEnvDuration("RATE_LIMIT_WINDOW", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.DraftTTL, err = getEnvDuration("DRAFT_TTL", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.LockTTL, err = getEnvDuration("SUBMIT_LOCK_TTL", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MinPasswordLen, err = getEnvInt("MIN_PASSWORD_LEN", 6); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	maxUpload, err := getEnvInt("MAX_UPLOAD_MB", 25)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadSize = int64(maxUpload) << 20
	proofWidth, err := getEnvInt("PROOF_MAX_WIDTH", 1200)
	if err != nil {
		return nil, err
	}
	cfg.ProofMaxWidth = uint(proofWidth)

	cfg.CSRFKey = loadKey(log, "CSRF_KEY")
	cfg.SessionKey = loadKey(log, "SESSION_KEY")
	cfg.JWTSecret = loadKey(log, "JWT_SECRET")

	// Make sure port is valid
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		log.Error("Invalid PORT environment variable. Falling back to default.", zap.String("PORT", os.Getenv("PORT")))
		cfg.Port = "8585"
	}

	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	switch c.BlobBackend {
	case "disk":
		if c.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR is required for the disk blob backend")
		}
	case "cloudinary":
		if c.CloudinaryCloudName == "" || c.CloudinaryPreset == "" {
			return fmt.Errorf("CLOUDINARY_CLOUD_NAME and CLOUDINARY_UPLOAD_PRESET are required for the cloudinary blob backend")
		}
	default:
		return fmt.Errorf("unsupported BLOB_BACKEND %q", c.BlobBackend)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("maximum upload size must be positive")
	}
	if c.TokenTTL <= 0 || c.DraftTTL <= 0 || c.LockTTL <= 0 {
		return fmt.Errorf("token, draft and lock TTLs must be positive")
	}
	if c.MinPasswordLen < 1 {
		return fmt.Errorf("minimum password length must be at least 1")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// String masks secrets.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %s, Env: %s, DB: %s, Blob: %s, Redis: %q, Keys: *** (masked) ***}",
		c.Port, c.Environment, c.DBDriver, c.BlobBackend, c.RedisAddr)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return n, nil
	}
	return defaultValue, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return d, nil
	}
	return defaultValue, nil
}

// loadKey decodes a base64 secret of at least 32 bytes, or generates a random
// one for development.
func loadKey(log *zap.Logger, name string) []byte {
	encoded := os.Getenv(name)
	if encoded == "" {
		log.Warn("Key not set. Generating a random key for development; it will change on each restart. PLEASE SET IT IN PRODUCTION!", zap.String("key", name))
		return generateRandomBytes(log, 32)
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(decoded) < 32 {
		log.Warn("Key is invalid or too short (min 32 bytes). Generating a random key for development. PLEASE SET A SECURE KEY IN PRODUCTION!", zap.String("key", name))
		return generateRandomBytes(log, 32)
	}
	return decoded
}

// generateRandomBytes generates a random byte slice of specified length
// Uses crypto/rand for secure random numbers.
func generateRandomBytes(log *zap.Logger, n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		log.Error("Failed to read random bytes", zap.Error(err))
		fallbackKey := "fallback-insecure-key-" + strconv.FormatInt(time.Now().UnixNano(), 10)
		if len(fallbackKey) < n {
			paddedKey := make([]byte, n)
			copy(paddedKey, fallbackKey)
			return paddedKey
		}
		return []byte(fallbackKey)[:n]
	}
	return b
}
