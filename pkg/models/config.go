package models

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server" json:"server"`
	OutputDir string          `mapstructure:"output_dir" json:"outputDir"`
	Extractor ExtractorConfig `mapstructure:"extractor" json:"extractor"`
	Log       LogConfig       `mapstructure:"log" json:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
	// RateLimit is the allowed download submissions per minute, 0 disables limiting
	RateLimit int `mapstructure:"rate_limit" json:"rateLimit"`
}

// ExtractorConfig holds yt-dlp settings
type ExtractorConfig struct {
	Backend        string   `mapstructure:"backend" json:"backend"`
	Path           string   `mapstructure:"path" json:"path"`
	UseCookies     bool     `mapstructure:"use_cookies" json:"useCookies"`
	AdditionalArgs []string `mapstructure:"additional_args" json:"additionalArgs"`
	AutoUpdate     bool     `mapstructure:"auto_update" json:"autoUpdate"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
	JSON  bool   `mapstructure:"json" json:"json"`
}

const (
	BackendExec    = "exec"
	BackendLibrary = "library"
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      9696,
			RateLimit: 10,
		},
		OutputDir: "downloads",
		Extractor: ExtractorConfig{
			Backend:        BackendExec,
			Path:           "",
			UseCookies:     true,
			AdditionalArgs: []string{},
			AutoUpdate:     false,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
