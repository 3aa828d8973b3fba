package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"ripit/pkg/models"
)

var (
	ErrInvalidPort      = errors.New("invalid port: must be between 1 and 65535")
	ErrInvalidOutputDir = errors.New("invalid output directory: must not be empty")
	ErrInvalidBackend   = errors.New("invalid extractor backend: must be \"exec\" or \"library\"")
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")
)

// EnvPrefix is the prefix for environment overrides, e.g. RIPIT_SERVER_PORT
const EnvPrefix = "RIPIT"

// Config keys
const (
	KeyServerHost      = "server.host"
	KeyServerPort      = "server.port"
	KeyServerRateLimit = "server.rate_limit"
	KeyOutputDir       = "output_dir"
	KeyBackend         = "extractor.backend"
	KeyExtractorPath   = "extractor.path"
	KeyUseCookies      = "extractor.use_cookies"
	KeyAdditionalArgs  = "extractor.additional_args"
	KeyAutoUpdate      = "extractor.auto_update"
	KeyLogLevel        = "log.level"
	KeyLogJSON         = "log.json"
)

// Manager handles configuration loading, saving, and updates
type Manager struct {
	mu         sync.RWMutex
	v          *viper.Viper
	config     *models.Config
	configPath string
}

// NewManager creates a new configuration manager.
// If configPath is set and the file doesn't exist, it creates one with default values.
// An empty configPath keeps the configuration in memory (defaults, env and flags only).
func NewManager(configPath string) (*Manager, error) {
	v := viper.New()
	setDefaults(v, models.DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	manager := &Manager{
		v:          v,
		configPath: configPath,
	}

	if configPath != "" {
		v.SetConfigFile(configPath)

		if _, err := os.Stat(configPath); err == nil {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
		} else {
			configDir := filepath.Dir(configPath)
			if err := os.MkdirAll(configDir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create config directory: %w", err)
			}

			if err := v.WriteConfigAs(configPath); err != nil {
				return nil, fmt.Errorf("failed to save default config: %w", err)
			}
		}
	}

	if err := manager.Reload(); err != nil {
		return nil, err
	}

	return manager, nil
}

// BindFlag binds a command-line flag to a config key. Call Reload afterwards.
func (m *Manager) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag for key %s", key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.v.BindPFlag(key, flag)
}

// Reload re-reads all sources into the typed configuration and validates it
func (m *Manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cfg models.Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	merged := mergeWithDefaults(&cfg)
	if err := Validate(merged); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	m.config = merged
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *models.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return clone(m.config)
}

// Path returns the config file path, empty when in-memory
func (m *Manager) Path() string {
	return m.configPath
}

func setDefaults(v *viper.Viper, cfg *models.Config) {
	v.SetDefault(KeyServerHost, cfg.Server.Host)
	v.SetDefault(KeyServerPort, cfg.Server.Port)
	v.SetDefault(KeyServerRateLimit, cfg.Server.RateLimit)
	v.SetDefault(KeyOutputDir, cfg.OutputDir)
	v.SetDefault(KeyBackend, cfg.Extractor.Backend)
	v.SetDefault(KeyExtractorPath, cfg.Extractor.Path)
	v.SetDefault(KeyUseCookies, cfg.Extractor.UseCookies)
	v.SetDefault(KeyAdditionalArgs, cfg.Extractor.AdditionalArgs)
	v.SetDefault(KeyAutoUpdate, cfg.Extractor.AutoUpdate)
	v.SetDefault(KeyLogLevel, cfg.Log.Level)
	v.SetDefault(KeyLogJSON, cfg.Log.JSON)
}

func clone(cfg *models.Config) *models.Config {
	c := *cfg
	c.Extractor.AdditionalArgs = append([]string(nil), cfg.Extractor.AdditionalArgs...)
	return &c
}

// mergeWithDefaults fills in default values for missing fields
func mergeWithDefaults(cfg *models.Config) *models.Config {
	defaults := models.DefaultConfig()

	if cfg.Server.Host == "" {
		cfg.Server.Host = defaults.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaults.OutputDir
	}
	if cfg.Extractor.Backend == "" {
		cfg.Extractor.Backend = defaults.Extractor.Backend
	}
	if cfg.Extractor.AdditionalArgs == nil {
		cfg.Extractor.AdditionalArgs = defaults.Extractor.AdditionalArgs
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}

	return cfg
}

// Validate checks if the configuration is valid
func Validate(cfg *models.Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return ErrInvalidPort
	}

	if strings.TrimSpace(cfg.OutputDir) == "" {
		return ErrInvalidOutputDir
	}

	switch cfg.Extractor.Backend {
	case models.BackendExec, models.BackendLibrary:
	default:
		return ErrInvalidBackend
	}

	if cfg.Server.RateLimit < 0 {
		return ErrInvalidRateLimit
	}

	return nil
}

// GetDataDir returns the application data directory
func GetDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		dataDir := filepath.Join(dir, "ripit")
		os.MkdirAll(dataDir, 0755)
		return dataDir
	}

	// Fallback to home directory
	if home, err := os.UserHomeDir(); err == nil {
		dataDir := filepath.Join(home, ".ripit")
		os.MkdirAll(dataDir, 0755)
		return dataDir
	}

	// Last resort: current directory
	return "."
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return filepath.Join(GetDataDir(), "config.yaml")
}
