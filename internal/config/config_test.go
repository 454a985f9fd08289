package config

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "8585")
	t.Setenv("CSRF_KEY", "")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("BLOB_BACKEND", "disk")

	cfg, err := LoadConfig(zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "8585", cfg.Port)
	assert.Len(t, cfg.CSRFKey, 32, "a development key is generated when none is set")
	assert.Equal(t, 5*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, int64(25)<<20, cfg.MaxUploadSize)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	t.Setenv("PORT", "9000")
	t.Setenv("SESSION_KEY", key)
	t.Setenv("DRAFT_TTL", "30m")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := LoadConfig(zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []byte(strings.Repeat("k", 32)), cfg.SessionKey)
	assert.Equal(t, 30*time.Minute, cfg.DraftTTL)
	assert.Equal(t, int64(5)<<20, cfg.MaxUploadSize)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadConfig_InvalidPortFallsBack(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	cfg, err := LoadConfig(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "8585", cfg.Port)
}

func TestLoadConfig_BadDuration(t *testing.T) {
	t.Setenv("TOKEN_TTL", "forever")

	_, err := LoadConfig(zap.NewNop())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("BLOB_BACKEND", "cloudinary")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "")

	cfg, err := LoadConfig(zap.NewNop())
	require.NoError(t, err)
	assert.Error(t, cfg.Validate(), "cloudinary needs a cloud name")

	cfg.CloudinaryCloudName = "demo"
	assert.NoError(t, cfg.Validate())

	cfg.DBDriver = "mysql"
	assert.Error(t, cfg.Validate())
}

func TestString_MasksSecrets(t *testing.T) {
	cfg, err := LoadConfig(zap.NewNop())
	require.NoError(t, err)
	assert.NotContains(t, cfg.String(), string(cfg.JWTSecret))
	assert.Contains(t, cfg.String(), "masked")
}
