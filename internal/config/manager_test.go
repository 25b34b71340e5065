package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	watchOn := true

	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errContains string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:        "port out of range - error",
			mutate:      func(c *Config) { c.Server.Port = 70000 },
			wantErr:     true,
			errContains: "server port",
		},
		{
			name:        "empty database path - error",
			mutate:      func(c *Config) { c.Database.Path = "" },
			wantErr:     true,
			errContains: "database path",
		},
		{
			name:        "bad log level - error",
			mutate:      func(c *Config) { c.Log.Level = "verbose" },
			wantErr:     true,
			errContains: "log.level",
		},
		{
			name:        "bad rescan cron - error",
			mutate:      func(c *Config) { c.Library.RescanCron = "not a cron" },
			wantErr:     true,
			errContains: "rescan_cron",
		},
		{
			name:   "valid rescan cron - ok",
			mutate: func(c *Config) { c.Library.RescanCron = "*/15 * * * *" },
		},
		{
			name: "watch without root - error",
			mutate: func(c *Config) {
				c.Library.Watch = &watchOn
				c.Library.Root = ""
			},
			wantErr:     true,
			errContains: "watch requires",
		},
		{
			name: "watch with root - ok",
			mutate: func(c *Config) {
				c.Library.Watch = &watchOn
				c.Library.Root = "/photos"
			},
		},
		{
			name:        "negative history limit - error",
			mutate:      func(c *Config) { c.Library.HistoryLimit = -1 },
			wantErr:     true,
			errContains: "history_limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_DeepCopy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Library.Root = "/photos"
	cfg.Library.Extensions = []string{".png", ".jpg"}

	cp := cfg.DeepCopy()
	cp.Library.Extensions[0] = ".gif"
	*cp.Library.Watch = true

	assert.Equal(t, ".png", cfg.Library.Extensions[0])
	assert.False(t, *cfg.Library.Watch)
}

func TestManager_UpdateConfigNotifiesCallbacks(t *testing.T) {
	cfg := DefaultConfig()
	m := NewManager(cfg, "")

	var gotOld, gotNew *Config
	m.OnConfigChange(func(oldConfig, newConfig *Config) {
		gotOld = oldConfig
		gotNew = newConfig
	})

	next := DefaultConfig()
	next.Library.Root = "/photos"
	require.NoError(t, m.UpdateConfig(next))

	require.NotNil(t, gotOld)
	assert.Equal(t, "", gotOld.Library.Root)
	assert.Equal(t, "/photos", gotNew.Library.Root)
	assert.Same(t, next, m.GetConfig())
}

func TestManager_ValidateConfigUpdateProtectsRestartOnlyFields(t *testing.T) {
	m := NewManager(DefaultConfig(), "")

	next := DefaultConfig()
	next.Server.Port = 9999
	err := m.ValidateConfigUpdate(next)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server port")

	next = DefaultConfig()
	next.Database.Path = "other.db"
	err = m.ValidateConfigUpdate(next)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database path")

	next = DefaultConfig()
	next.Library.Root = "/photos"
	assert.NoError(t, m.ValidateConfigUpdate(next))
}

func TestSaveToFileAndLoadConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Library.Root = "/photos"
	cfg.Library.Extensions = []string{".png", ".webp"}
	cfg.Log.Level = "debug"
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/photos", loaded.Library.Root)
	assert.Equal(t, []string{".png", ".webp"}, loaded.Library.Extensions)
	assert.Equal(t, "debug", loaded.Log.Level)
	assert.Equal(t, cfg.Server.Port, loaded.Server.Port)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidConfigRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: -1\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

type fakeLevelSetter struct {
	levels []slog.Level
}

func (f *fakeLevelSetter) SetLevel(level slog.Level) {
	f.levels = append(f.levels, level)
}

func TestLoggingUpdater(t *testing.T) {
	setter := &fakeLevelSetter{}
	u := NewLoggingUpdater(setter, "info")

	// Same level is a no-op.
	require.NoError(t, u.UpdateLogLevel("info"))
	assert.Empty(t, setter.levels)

	require.NoError(t, u.UpdateLogLevel("debug"))
	require.NoError(t, u.UpdateLogLevel("error"))
	assert.Equal(t, []slog.Level{slog.LevelDebug, slog.LevelError}, setter.levels)

	assert.Error(t, u.UpdateLogLevel("verbose"))
}
