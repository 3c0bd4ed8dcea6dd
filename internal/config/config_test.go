package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresSecrets(t *testing.T) {
	t.Setenv(PathEnvVar, "")
	_, err := Load("")
	require.ErrorContains(t, err, "database.dsn is required")
	require.ErrorContains(t, err, "auth.jwt_key is required")
}

func TestLoad_EnvOverridesFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slushbook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
  cors_origins: ["https://a.example"]
database:
  dsn: postgres://file
auth:
  jwt_key: from-file
geo:
  timeout: 2s
`), 0o600))

	t.Setenv("SLUSHBOOK_DATABASE__DSN", "postgres://env")
	t.Setenv("SLUSHBOOK_TRANSLATOR__LANGUAGES", "da, en ,fr")
	t.Setenv("SLUSHBOOK_LISTING__MAX_LIMIT", "50")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Server.Addr)
	require.Equal(t, []string{"https://a.example"}, cfg.Server.CORSOrigins)
	require.Equal(t, "postgres://env", cfg.Database.DSN)
	require.Equal(t, "from-file", cfg.Auth.JWTKey)
	require.Equal(t, 2*time.Second, cfg.Geo.Timeout)
	require.Equal(t, []string{"da", "en", "fr"}, cfg.Translator.Languages)
	require.Equal(t, 50, cfg.Listing.MaxLimit)

	require.Equal(t, 24*time.Hour, cfg.Auth.AccessTTL)
	require.Equal(t, "DK", cfg.Geo.DefaultCountry)
	require.Equal(t, 3*time.Second, cfg.Translator.Timeout)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	require.Equal(t, "auth.jwt_key", envKey("SLUSHBOOK_AUTH__JWT_KEY"))
	require.Equal(t, "server.rate_limit_per_minute", envKey("SLUSHBOOK_SERVER__RATE_LIMIT_PER_MINUTE"))
}
