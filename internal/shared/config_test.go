package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir runs the test from an empty directory so no stray .env is picked up.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, k := range []string{"HTTP_ADDR", "PORT", "REVIEWS_SOURCE", "REDIS_ADDR", "SUBMIT_RPS", "CACHE_TTL_SECONDS", "SCORE_WORKERS"} {
		t.Setenv(k, "")
	}

	c := Load()
	assert.Equal(t, ":8000", c.HTTPAddr)
	assert.Equal(t, SourceCSV, c.ReviewsSource)
	assert.Empty(t, c.RedisAddr)
	assert.Equal(t, 24*time.Hour, c.CacheTTL)
	assert.Equal(t, 4, c.ScoreWorkers)
	assert.Zero(t, c.SubmitRPS)
	assert.Equal(t, int64(1<<20), c.MaxBodyBytes)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "9090")
	t.Setenv("REVIEWS_SOURCE", "SQLite")
	t.Setenv("SUBMIT_RPS", "2.5")
	t.Setenv("SCORE_WORKERS", "nope")

	c := Load()
	assert.Equal(t, ":9090", c.HTTPAddr)
	assert.Equal(t, SourceSQLite, c.ReviewsSource)
	assert.Equal(t, 2.5, c.SubmitRPS)
	assert.Equal(t, 4, c.ScoreWorkers)
}

func TestLoad_UnknownSourceFallsBack(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("REVIEWS_SOURCE", "mongo")
	assert.Equal(t, SourceCSV, Load().ReviewsSource)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SQLITE_PATH=/tmp/from-dotenv.db\n"), 0o600))
	chdir(t, dir)
	t.Setenv("SQLITE_PATH", "")
	require.NoError(t, os.Unsetenv("SQLITE_PATH"))

	assert.Equal(t, "/tmp/from-dotenv.db", Load().SQLitePath)
}
