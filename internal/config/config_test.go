package config

import (
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(logger.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "marketplace-service", cfg.ServiceName)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "secondhand-store", cfg.MinIOBucket)
	assert.Equal(t, 30*time.Second, cfg.CleanupTimeout)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.False(t, cfg.SMTPEnabled())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("CLEANUP_TIMEOUT", "5s")
	t.Setenv("SMTP_EMAIL", "shop@example.com")
	t.Setenv("SMTP_PASSWORD", "pw")

	cfg, err := LoadConfig(logger.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.HTTPPort)
	assert.True(t, cfg.MinIOUseSSL)
	assert.Equal(t, 5*time.Second, cfg.CleanupTimeout)
	assert.True(t, cfg.SMTPEnabled())
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{MongoURI: "mongodb://x", MongoDatabase: "db", MinIOBucket: "b", CleanupTimeout: time.Second}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	cfg.JWTSecret = "s3cr3t"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_AllowedOrigins(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: " http://a.test , ,http://b.test"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins())
}
