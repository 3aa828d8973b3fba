package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ripit/internal/config"
	"ripit/internal/downloader"
	"ripit/internal/extractor"
	"ripit/internal/logging"
	"ripit/internal/workspace"
	"ripit/internal/ytdl"
	"ripit/pkg/models"
)

const (
	toolsDirName    = "bin"
	cookiesFileName = "cookies.txt"
)

// CLI represents the command-line interface
type CLI struct {
	version string
	stdout  io.Writer
	stderr  io.Writer

	// persistent flag values
	configPath string
	logLevel   string
	outputDir  string

	newExtractor func(backend string, opts extractor.Options) (extractor.Extractor, error)
	newTools     func(dir string) *ytdl.Manager

	// set by the root pre-run
	cfgMgr *config.Manager
	logger zerolog.Logger
}

// NewCLI creates a new CLI instance
func NewCLI(version string) *CLI {
	return &CLI{
		version:      version,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		newExtractor: extractor.New,
		newTools:     ytdl.NewManager,
		logger:       logging.Nop(),
	}
}

// SetOutput redirects command output
func (c *CLI) SetOutput(stdout, stderr io.Writer) {
	c.stdout = stdout
	c.stderr = stderr
}

// Run executes the CLI with the given arguments and returns the exit code
func (c *CLI) Run(ctx context.Context, args []string) int {
	root := c.rootCommand()
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// rootCommand builds the command tree
func (c *CLI) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ripit",
		Short:         "Download videos as MP4 or audio as MP3",
		Long:          "ripit serves a small web form that fetches a video with yt-dlp and returns it as MP4 video or MP3 audio.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig(cmd)
		},
	}

	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Config file (default is config.yaml in the user config directory)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVarP(&c.outputDir, "output-dir", "o", "", "Directory for downloaded files (cleared before every download)")

	root.AddCommand(c.serverCommand())
	root.AddCommand(c.downloadCommand())
	root.AddCommand(c.updateCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.versionCommand())

	return root
}

// loadConfig reads the config file and binds the flags of the running command
func (c *CLI) loadConfig(cmd *cobra.Command) error {
	path := c.configPath
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	mgr, err := config.NewManager(path)
	if err != nil {
		return err
	}

	bindings := map[string]string{
		config.KeyLogLevel:   "log-level",
		config.KeyOutputDir:  "output-dir",
		config.KeyServerPort: "port",
	}
	for key, name := range bindings {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := mgr.BindFlag(key, flag); err != nil {
			return err
		}
	}

	if err := mgr.Reload(); err != nil {
		return err
	}

	cfg := mgr.Get()
	c.cfgMgr = mgr
	c.logger = logging.Setup(cfg.Log.Level, cfg.Log.JSON, c.stderr)
	c.logger.Debug().Str("config", mgr.Path()).Msg("configuration loaded")

	return nil
}

// dataDir holds the config file, the managed tools and the cookies file
func (c *CLI) dataDir() string {
	return filepath.Dir(c.cfgMgr.Path())
}

// tools returns the tool manager for the data directory
func (c *CLI) tools() *ytdl.Manager {
	mgr := c.newTools(filepath.Join(c.dataDir(), toolsDirName))
	mgr.SetLogger(c.logger)
	return mgr
}

// buildDownloader wires the configured extractor, output directory and logger
func (c *CLI) buildDownloader(cfg *models.Config, tools *ytdl.Manager) (*downloader.Downloader, string, error) {
	if cfg.Extractor.AutoUpdate {
		if err := tools.AutoUpdate(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to update yt-dlp")
		}
	}

	executable, err := tools.ResolveExecutable(cfg.Extractor.Path)
	if err != nil {
		c.logger.Warn().Err(err).Msg("yt-dlp not located; run 'ripit update' to install it")
	}

	if !tools.TranscoderAvailable() {
		c.logger.Warn().Msg("ffmpeg not found in PATH; MP3 conversion and MP4 merging will fail")
	}

	cookiesPath := filepath.Join(c.dataDir(), cookiesFileName)
	opts := extractor.Options{
		Executable:     executable,
		AdditionalArgs: cfg.Extractor.AdditionalArgs,
		Logger:         c.logger,
	}
	if cfg.Extractor.UseCookies {
		opts.CookiesFile = cookiesPath
	}

	ex, err := c.newExtractor(cfg.Extractor.Backend, opts)
	if err != nil {
		return nil, "", err
	}

	dl := downloader.NewDownloader(workspace.NewManager(cfg.OutputDir), ex, downloader.WithLogger(c.logger))
	return dl, cookiesPath, nil
}
