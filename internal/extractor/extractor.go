// Package extractor runs yt-dlp for a single URL and reports what it produced.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"ripit/internal/locator"
	"ripit/pkg/models"
)

var (
	ErrExtractionFailed = errors.New("extraction failed")
	ErrUnknownBackend   = errors.New("unknown extractor backend")
)

// DefaultTemplate names output files after the media title
const DefaultTemplate = "%(title)s.%(ext)s"

// FormatPolicy is the yt-dlp format selection and post-processing for one output format
type FormatPolicy struct {
	Selector          string
	MergeOutputFormat string
	ExtractAudio      bool
	AudioCodec        string
	AudioQuality      string
	Target            locator.Target
}

// PolicyFor returns the policy for the requested format
func PolicyFor(format models.DownloadFormat) FormatPolicy {
	switch format {
	case models.FormatAudioMP3:
		return FormatPolicy{
			Selector:     "bestaudio/best",
			ExtractAudio: true,
			AudioCodec:   "mp3",
			AudioQuality: "192",
			Target: locator.Target{
				Ext:        format.Ext(),
				SourceExts: []string{".webm", ".m4a"},
			},
		}
	default:
		return FormatPolicy{
			Selector:          "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]",
			MergeOutputFormat: "mp4",
			Target: locator.Target{
				Ext:        models.FormatVideoMP4.Ext(),
				SourceExts: []string{".webm", ".mkv"},
			},
		}
	}
}

// ExtractRequest is one extractor invocation
type ExtractRequest struct {
	SourceURL string
	Policy    FormatPolicy
	OutputDir string
	Template  string
}

func (r ExtractRequest) template() string {
	if r.Template == "" {
		return DefaultTemplate
	}
	return r.Template
}

// Extractor downloads the media of a request into its output directory.
// Extract blocks until the external tool exits.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) (models.ExtractionInfo, error)
}

// Options are shared by both backends
type Options struct {
	// Executable is the yt-dlp binary, empty means "yt-dlp" on PATH
	Executable string
	// CookiesFile is passed with --cookies when the file exists at extraction time
	CookiesFile    string
	AdditionalArgs []string
	Logger         zerolog.Logger
}

// New creates the extractor selected by the backend name
func New(backend string, opts Options) (Extractor, error) {
	switch backend {
	case "", models.BackendExec:
		return NewCommandExtractor(opts), nil
	case models.BackendLibrary:
		return NewLibraryExtractor(opts), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}
}

// cookiesPath returns the cookies file if configured and present
func (o Options) cookiesPath() string {
	if o.CookiesFile == "" {
		return ""
	}
	if _, err := os.Stat(o.CookiesFile); err != nil {
		return ""
	}
	return o.CookiesFile
}

// failure wraps the tool's error output, falling back to the process error
func failure(stderr string, err error) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		msg = err.Error()
	}
	return fmt.Errorf("%w: %s", ErrExtractionFailed, msg)
}
