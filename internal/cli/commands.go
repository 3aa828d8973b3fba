package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ripit/internal/api"
	"ripit/pkg/models"
)

// serverCommand starts the web form and blocks until interrupted
func (c *CLI) serverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfgMgr.Get()
			tools := c.tools()

			dl, cookiesPath, err := c.buildDownloader(cfg, tools)
			if err != nil {
				return err
			}

			api.Version = c.version
			server := api.NewServer(cfg, dl, tools, cookiesPath, c.logger)
			if err := server.Start(); err != nil {
				return err
			}

			fmt.Fprintf(c.stdout, "Open http://%s in your browser\n", server.GetActualAddr())
			fmt.Fprintln(c.stdout, "Press Ctrl+C to stop")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			c.logger.Info().Msg("shutting down")
			return server.Stop()
		},
	}

	cmd.Flags().IntP("port", "p", models.DefaultConfig().Server.Port, "Server port")

	return cmd
}

// downloadCommand runs one download and prints the artifact path
func (c *CLI) downloadCommand() *cobra.Command {
	var audio bool

	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Download a single URL into the output directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfgMgr.Get()

			dl, _, err := c.buildDownloader(cfg, c.tools())
			if err != nil {
				return err
			}

			format := models.FormatVideoMP4
			if audio {
				format = models.FormatAudioMP3
			}

			result := dl.PerformDownload(cmd.Context(), models.DownloadRequest{
				SourceURL: args[0],
				Format:    format,
			})
			if !result.Succeeded() {
				return fmt.Errorf("%s: %s", result.Reason, result.Detail)
			}

			size := ""
			if info, err := os.Stat(result.FilePath); err == nil {
				size = humanize.Bytes(uint64(info.Size()))
			}

			fmt.Fprintln(c.stdout, result.FilePath)
			fmt.Fprintf(c.stderr, "Saved %s (%s, %s)\n", result.FileName(), result.MimeType, size)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&audio, "audio", "a", false, "Extract audio as MP3 instead of MP4 video")

	return cmd
}

// updateCommand installs or updates the managed yt-dlp
func (c *CLI) updateCommand() *cobra.Command {
	var checkOnly bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Install or update the managed yt-dlp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tools := c.tools()
			current := tools.GetCurrentVersion()
			if current == "" {
				current = "none"
			}

			latest, hasUpdate, err := tools.CheckForUpdate()
			if err != nil {
				return err
			}

			if !hasUpdate {
				fmt.Fprintf(c.stdout, "yt-dlp is up to date (version %s)\n", latest)
				return nil
			}

			fmt.Fprintf(c.stdout, "Update available: %s -> %s\n", current, latest)

			if checkOnly {
				fmt.Fprintln(c.stdout, "Run 'ripit update' to install the update")
				return nil
			}

			if err := tools.Download(); err != nil {
				return err
			}

			fmt.Fprintf(c.stdout, "Installed yt-dlp %s to %s\n", tools.GetCurrentVersion(), tools.GetYtdlpPath())
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only check for updates without installing")

	return cmd
}

// checkCommand reports whether yt-dlp and ffmpeg can be found
func (c *CLI) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that yt-dlp and ffmpeg are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfgMgr.Get()
			tools := c.tools()

			var missing []string

			if path, err := tools.ResolveExecutable(cfg.Extractor.Path); err == nil {
				version := tools.GetCurrentVersion()
				if version == "" || path != tools.GetYtdlpPath() {
					version = "unmanaged"
				}
				fmt.Fprintf(c.stdout, "yt-dlp: %s (%s)\n", path, version)
			} else {
				fmt.Fprintf(c.stdout, "yt-dlp: not found\n")
				missing = append(missing, "yt-dlp")
			}

			if path, err := tools.TranscoderPath(); err == nil {
				fmt.Fprintf(c.stdout, "ffmpeg: %s\n", path)
			} else {
				fmt.Fprintf(c.stdout, "ffmpeg: not found\n")
				missing = append(missing, "ffmpeg")
			}

			fmt.Fprintf(c.stdout, "output: %s\n", cfg.OutputDir)

			if len(missing) > 0 {
				return errors.New("missing tools: " + strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

// versionCommand prints the version information
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No config needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(c.stdout, "ripit version %s\n", c.version)
			return nil
		},
	}
}
