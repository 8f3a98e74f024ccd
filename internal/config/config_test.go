package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Format)
	assert.Empty(t, cfg.DB)
	assert.True(t, cfg.Index.Parallel)
	assert.True(t, cfg.Index.TreeCache)
	assert.Zero(t, cfg.Index.Workers)
	assert.Empty(t, cfg.Index.Languages)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db: /tmp/arbor.db
format: text
index:
  languages: [go, python]
  workers: 3
  parallel: false
log:
  level: debug
`), 0o644))

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/arbor.db", cfg.DB)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, []string{"go", "python"}, cfg.Index.Languages)
	assert.Equal(t, 3, cfg.Index.Workers)
	assert.False(t, cfg.Index.Parallel)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DiscoversDotArborYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".arbor.yaml"), []byte("format: text\n"), 0o644))
	t.Chdir(dir)

	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Format)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index:\n  workers: 3\n"), 0o644))
	t.Setenv("ARBOR_INDEX_WORKERS", "7")
	t.Setenv("ARBOR_INDEX_LANGUAGES", "rust, go")
	t.Setenv("ARBOR_LOG_LEVEL", "error")

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Index.Workers)
	assert.Equal(t, []string{"rust", "go"}, cfg.Index.Languages)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoad_BoundFlagWins(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ARBOR_FORMAT", "json")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("format", "json", "")
	require.NoError(t, flags.Parse([]string{"--format", "text"}))

	v, err := NewViper("")
	require.NoError(t, err)
	require.NoError(t, v.BindPFlag("format", flags.Lookup("format")))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Format)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Format: "json", Log: LogConfig{Level: "info", Format: "text"}}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad format", func(c *Config) { c.Format = "yaml" }, "format must be json or text"},
		{"negative workers", func(c *Config) { c.Index.Workers = -1 }, "index.workers"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLogConfig_Logger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "info", Format: "json"}.Logger(&buf)

	logger.Debug("hidden")
	logger.Info("shown", "k", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":1`)
}
