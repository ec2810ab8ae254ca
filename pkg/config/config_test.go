package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Port    int      `env:"ZY_TEST_PORT" envDefault:"8080"`
	Token   string   `env:"ZY_TEST_TOKEN"`
	Brokers []string `env:"ZY_TEST_BROKERS" envDefault:"localhost:9092" envSeparator:","`
}

type mustHave struct {
	Secret string `env:"ZY_TEST_SECRET,required"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg sampleConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Empty(t, cfg.Token)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ZY_TEST_PORT", "9100")
	t.Setenv("ZY_TEST_BROKERS", "k1:9092,k2:9092")

	var cfg sampleConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
}

func TestLoad_RequiredMissing(t *testing.T) {
	var cfg mustHave
	err := Load(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_BadValue(t *testing.T) {
	t.Setenv("ZY_TEST_PORT", "eighty")

	var cfg sampleConfig
	assert.Error(t, Load(&cfg))
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("ZY_TEST_TOKEN=from-file\nZY_TEST_PORT=7000\n"), 0o600))

	t.Setenv("ZY_TEST_PORT", "9000")
	t.Setenv("ZY_TEST_TOKEN", "")
	require.NoError(t, os.Unsetenv("ZY_TEST_TOKEN"))

	require.NoError(t, LoadDotEnv(path))
	t.Cleanup(func() { _ = os.Unsetenv("ZY_TEST_TOKEN") })

	var cfg sampleConfig
	require.NoError(t, Load(&cfg))
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "from-file", cfg.Token)
}
