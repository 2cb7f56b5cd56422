package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestHome points HOME at a temporary directory and returns the guild
// config directory inside it.
func setupTestHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "guild")
	require.NoError(t, os.MkdirAll(dir, 0700))
	return dir
}

func writeConfig(t *testing.T, dir, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, `compression:
  mode: deployment
  concurrency: 4
paths:
  guideline_dir: /srv/guideline
server:
  port: 8088
  shutdown_timeout: 3s
watch:
  debounce: 1s
`, 0600)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "deployment", cfg.Compression.Mode)
	assert.Equal(t, 4, cfg.Compression.Concurrency)
	assert.Equal(t, "/srv/guideline", cfg.Paths.GuidelineDir)
	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, time.Second, cfg.Watch.Debounce.Duration())

	// Keys absent from the file keep their defaults.
	assert.Equal(t, "core/**/*.md", cfg.Paths.ModuleGlob)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.True(t, cfg.Secrets.Enabled)
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	setupTestHome(t)

	cfg, err := LoadWithFile("")
	require.NoError(t, err)
	assert.Equal(t, NewDefault(), cfg)
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "compression:\n  mode: install\nserver:\n  port: 8088\n", 0600)

	t.Setenv("GUILD_COMPRESSION_MODE", "deployment")
	t.Setenv("GUILD_COMPRESSION_DEFAULT_PRIORITY", "high")
	t.Setenv("GUILD_PATHS_OUTPUT_DIR", "/tmp/commands")
	t.Setenv("GUILD_SERVER_PORT", "7070")
	t.Setenv("GUILD_SECRETS_ENABLED", "false")
	t.Setenv("GUILD_EVENTS_TOKEN", "nats-s3cret")
	t.Setenv("GUILD_WATCH_DEBOUNCE", "1s")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "deployment", cfg.Compression.Mode)
	assert.Equal(t, "high", cfg.Compression.DefaultPriority)
	assert.Equal(t, "/tmp/commands", cfg.Paths.OutputDir)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.False(t, cfg.Secrets.Enabled)
	assert.Equal(t, "nats-s3cret", cfg.Events.Token.Value())
	assert.Equal(t, time.Second, cfg.Watch.Debounce.Duration())
}

func TestLoadWithFile_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, dir string) string
		wantErr string
		unix    bool
	}{
		{
			name: "outside allowed directories",
			setup: func(t *testing.T, _ string) string {
				return filepath.Join(t.TempDir(), "config.yaml")
			},
			wantErr: "path validation",
		},
		{
			name: "traversal out of config dir",
			setup: func(t *testing.T, dir string) string {
				return filepath.Join(dir, "..", "guild-evil", "config.yaml")
			},
			wantErr: "path validation",
		},
		{
			name: "world readable",
			setup: func(t *testing.T, dir string) string {
				return writeConfig(t, dir, "compression:\n  mode: install\n", 0644)
			},
			wantErr: "insecure config file permissions",
			unix:    true,
		},
		{
			name: "too large",
			setup: func(t *testing.T, dir string) string {
				return writeConfig(t, dir, "# "+strings.Repeat("x", maxConfigFileSize), 0600)
			},
			wantErr: "too large",
		},
		{
			name: "malformed yaml",
			setup: func(t *testing.T, dir string) string {
				return writeConfig(t, dir, "compression: [unterminated", 0600)
			},
			wantErr: "failed to load config file",
		},
		{
			name: "invalid value",
			setup: func(t *testing.T, dir string) string {
				return writeConfig(t, dir, "compression:\n  mode: turbo\n", 0600)
			},
			wantErr: "compression.mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.unix && runtime.GOOS == "windows" {
				t.Skip("permission model differs on windows")
			}
			dir := setupTestHome(t)
			path := tt.setup(t, dir)

			_, err := LoadWithFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"GUILD_COMPRESSION_MODE":    "compression.mode",
		"GUILD_PATHS_GUIDELINE_DIR": "paths.guideline_dir",
		"GUILD_SERVER_RATE_LIMIT":   "server.rate_limit",
		"GUILD_VERBOSE":             "verbose",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestEnsureConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, EnsureConfigDir())

	info, err := os.Stat(filepath.Join(home, ".config", "guild"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
