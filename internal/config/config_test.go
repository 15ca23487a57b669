package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresSecretKey(t *testing.T) {
	t.Setenv("SECRET_KEY", "")
	t.Setenv("CONFIG_FILE", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECRET_KEY")
}

func TestLoad_EnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("ADMIN_LOGINS", "yakovleva.sv, ivan.petrov@sirius.ru,")
	t.Setenv("TRACKER_TIMEOUT", "3s")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.SecretKey)
	assert.Equal(t, []string{"yakovleva.sv", "ivan.petrov"}, cfg.AdminLogins)
	assert.Equal(t, 3*time.Second, cfg.Tracker.Timeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "https://api.tracker.yandex.net/v3", cfg.Tracker.APIURL)
}

func TestLoad_YAMLFileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
secret_key: from-file
admin_logins: [boss]
tracker:
  queue: REPORTS
  timeout: 7s
database:
  driver: arangodb
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SECRET_KEY", "")
	t.Setenv("TRACKER_QUEUE", "OVERRIDE")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.SecretKey)
	assert.Equal(t, []string{"boss"}, cfg.AdminLogins)
	assert.Equal(t, "OVERRIDE", cfg.Tracker.Queue)
	assert.Equal(t, 7*time.Second, cfg.Tracker.Timeout)
	assert.Equal(t, DriverArango, cfg.Database.Driver)
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := Default()
	cfg.SecretKey = "k"
	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())
}
