package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripit/pkg/models"
)

func TestNewManager(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	manager, err := NewManager(configPath)
	require.NoError(t, err)
	require.NotNil(t, manager)

	// Should create config with defaults
	cfg := manager.Get()
	assert.Equal(t, 9696, cfg.Server.Port)
	assert.Equal(t, "downloads", cfg.OutputDir)
	assert.Equal(t, models.BackendExec, cfg.Extractor.Backend)
	assert.FileExists(t, configPath)
}

func TestNewManagerInMemory(t *testing.T) {
	manager, err := NewManager("")
	require.NoError(t, err)

	cfg := manager.Get()
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Empty(t, manager.Path())
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr bool
		check   func(t *testing.T, cfg *Manager)
	}{
		{
			name: "valid yaml config",
			file: "config.yaml",
			content: `server:
  port: 8080
output_dir: media
extractor:
  backend: library
  additional_args:
    - --proxy
    - http://proxy:8080
`,
			wantErr: false,
			check: func(t *testing.T, manager *Manager) {
				cfg := manager.Get()
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "media", cfg.OutputDir)
				assert.Equal(t, models.BackendLibrary, cfg.Extractor.Backend)
				assert.Equal(t, []string{"--proxy", "http://proxy:8080"}, cfg.Extractor.AdditionalArgs)
				// Untouched values keep defaults
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
			},
		},
		{
			name:    "valid json config",
			file:    "config.json",
			content: `{"server": {"port": 7070}, "log": {"level": "debug"}}`,
			wantErr: false,
			check: func(t *testing.T, manager *Manager) {
				cfg := manager.Get()
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, "debug", cfg.Log.Level)
			},
		},
		{
			name:    "empty config uses defaults",
			file:    "config.json",
			content: `{}`,
			wantErr: false,
			check: func(t *testing.T, manager *Manager) {
				cfg := manager.Get()
				assert.Equal(t, 9696, cfg.Server.Port)
				assert.Equal(t, "downloads", cfg.OutputDir)
			},
		},
		{
			name:    "invalid JSON",
			file:    "config.json",
			content: `{invalid json`,
			wantErr: true,
		},
		{
			name:    "invalid backend",
			file:    "config.yaml",
			content: "extractor:\n  backend: python\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			configPath := filepath.Join(tempDir, tt.file)

			err := os.WriteFile(configPath, []byte(tt.content), 0644)
			require.NoError(t, err)

			manager, err := NewManager(configPath)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, manager)
			}
		})
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("RIPIT_SERVER_PORT", "8181")
	t.Setenv("RIPIT_OUTPUT_DIR", "scratch")

	manager, err := NewManager("")
	require.NoError(t, err)

	cfg := manager.Get()
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "scratch", cfg.OutputDir)
}

func TestBindFlag(t *testing.T) {
	manager, err := NewManager("")
	require.NoError(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("port", 0, "port")
	require.NoError(t, fs.Parse([]string{"--port", "9000"}))

	require.NoError(t, manager.BindFlag(KeyServerPort, fs.Lookup("port")))
	require.NoError(t, manager.Reload())
	assert.Equal(t, 9000, manager.Get().Server.Port)

	assert.Error(t, manager.BindFlag(KeyOutputDir, fs.Lookup("missing")))
}

func TestUnchangedFlagKeepsDefault(t *testing.T) {
	manager, err := NewManager("")
	require.NoError(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("output-dir", "", "output directory")
	require.NoError(t, fs.Parse(nil))

	require.NoError(t, manager.BindFlag(KeyOutputDir, fs.Lookup("output-dir")))
	require.NoError(t, manager.Reload())
	assert.Equal(t, "downloads", manager.Get().OutputDir)
}

func TestGetReturnsCopy(t *testing.T) {
	manager, err := NewManager("")
	require.NoError(t, err)

	cfg := manager.Get()
	cfg.OutputDir = "changed"
	cfg.Extractor.AdditionalArgs = append(cfg.Extractor.AdditionalArgs, "--x")

	fresh := manager.Get()
	assert.Equal(t, "downloads", fresh.OutputDir)
	assert.Empty(t, fresh.Extractor.AdditionalArgs)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(cfg *models.Config)
		wantErr error
	}{
		{
			name:  "valid config",
			setup: func(cfg *models.Config) {},
		},
		{
			name: "invalid port - too low",
			setup: func(cfg *models.Config) {
				cfg.Server.Port = 0
			},
			wantErr: ErrInvalidPort,
		},
		{
			name: "invalid port - too high",
			setup: func(cfg *models.Config) {
				cfg.Server.Port = 70000
			},
			wantErr: ErrInvalidPort,
		},
		{
			name: "blank output dir",
			setup: func(cfg *models.Config) {
				cfg.OutputDir = "  "
			},
			wantErr: ErrInvalidOutputDir,
		},
		{
			name: "unknown backend",
			setup: func(cfg *models.Config) {
				cfg.Extractor.Backend = "python"
			},
			wantErr: ErrInvalidBackend,
		},
		{
			name: "negative rate limit",
			setup: func(cfg *models.Config) {
				cfg.Server.RateLimit = -1
			},
			wantErr: ErrInvalidRateLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := models.DefaultConfig()
			tt.setup(cfg)

			err := Validate(cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestGetDataDir(t *testing.T) {
	dir := GetDataDir()
	assert.NotEmpty(t, dir)
	assert.DirExists(t, dir)
}
