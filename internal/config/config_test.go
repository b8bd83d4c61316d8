package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
server:
  port: 8080
storage:
  type: memory
auth:
  trust_user_header: true
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "0 0 0 * * *", cfg.Scheduler.MaterializeRollingRides)
	assert.Equal(t, 7, cfg.Materializer.RollingHorizonDays)
	assert.Equal(t, 5, cfg.Recommendation.MaxResults)
	assert.Equal(t, 3, cfg.Recommendation.TopDestinations)
	assert.Equal(t, 3, cfg.Recommendation.PerDestination)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "", cfg.GetGRPCAddress())
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	t.Run("PostgresRequiresDatabase", func(t *testing.T) {
		cfg := &Config{Server: ServerConfig{Port: 8080}, Auth: AuthConfig{TrustUserHeader: true}}
		assert.EqualError(t, cfg.Validate(), "database host is required")
	})

	t.Run("ShortSecret", func(t *testing.T) {
		cfg := &Config{Server: ServerConfig{Port: 8080}, Storage: StorageConfig{Type: "memory"}, JWT: JWTConfig{Secret: "short"}}
		assert.EqualError(t, cfg.Validate(), "JWT secret must be at least 32 characters")
	})

	t.Run("UnknownStorage", func(t *testing.T) {
		cfg := &Config{Server: ServerConfig{Port: 8080}, Storage: StorageConfig{Type: "mongo"}}
		assert.Error(t, cfg.Validate())
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Type)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGetSecurityLevel(t *testing.T) {
	assert.Equal(t, SecurityPublic, GetSecurityLevel("GET", "/api/v1/rides"))
	assert.Equal(t, SecurityAccess, GetSecurityLevel("POST", "/api/v1/rides"))
	assert.Equal(t, SecurityPublic, GetSecurityLevel("GET", "/healthz"))
	assert.Equal(t, SecurityAccess, GetSecurityLevel("GET", "/api/v1/contracts"))
}
