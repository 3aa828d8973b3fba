package extractor

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"

	"ripit/pkg/models"
)

// LibraryExtractor drives yt-dlp through go-ytdlp and captures the target
// filename from progress updates.
type LibraryExtractor struct {
	opts   Options
	logger zerolog.Logger
}

// NewLibraryExtractor creates a go-ytdlp based extractor
func NewLibraryExtractor(opts Options) *LibraryExtractor {
	return &LibraryExtractor{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "extractor").Str("backend", models.BackendLibrary).Logger(),
	}
}

func (e *LibraryExtractor) command(req ExtractRequest, path, finished, title *ResultSlot) *ytdlp.Command {
	dl := ytdlp.New().
		NoPlaylist().
		Format(req.Policy.Selector).
		Output(filepath.Join(req.OutputDir, req.template()))

	if e.opts.Executable != "" {
		dl.SetExecutable(e.opts.Executable)
	}

	if req.Policy.MergeOutputFormat != "" {
		dl.MergeOutputFormat(req.Policy.MergeOutputFormat)
	}

	if req.Policy.ExtractAudio {
		dl.ExtractAudio().AudioFormat(req.Policy.AudioCodec)
		if req.Policy.AudioQuality != "" {
			dl.AudioQuality(req.Policy.AudioQuality)
		}
	}

	if cookies := e.opts.cookiesPath(); cookies != "" {
		dl.Cookies(cookies)
	}

	dl.ProgressFunc(500*time.Millisecond, func(update ytdlp.ProgressUpdate) {
		if update.Info != nil {
			if update.Info.Title != nil && *update.Info.Title != "" {
				title.Set(*update.Info.Title)
			}
			// Every fragment of a merged download carries the final target name
			if name := targetFilename(update.Info); name != "" {
				path.Set(name)
			}
		}
		if update.Status == ytdlp.ProgressStatusFinished && update.Filename != "" {
			finished.Set(update.Filename)
		}
	})

	return dl
}

// Extract implements Extractor
func (e *LibraryExtractor) Extract(ctx context.Context, req ExtractRequest) (models.ExtractionInfo, error) {
	var path, finished, title ResultSlot
	dl := e.command(req, &path, &finished, &title)

	args := append(append([]string{}, e.opts.AdditionalArgs...), "--", req.SourceURL)

	e.logger.Debug().Str("url", req.SourceURL).Msg("running yt-dlp")

	result, err := dl.Run(ctx, args...)
	if err != nil {
		stderr := ""
		if result != nil {
			stderr = result.Stderr
		}
		return models.ExtractionInfo{}, failure(stderr, err)
	}

	// Without a target name, fall back to the first finished download
	if name, ok := finished.Get(); ok {
		path.Set(name)
	}

	return infoFromSlots(&path, &title), nil
}

// targetFilename returns the name yt-dlp prepared for the final file, as in --dump-json
func targetFilename(info *ytdlp.ExtractedInfo) string {
	if info.AltFilename != nil && *info.AltFilename != "" {
		return *info.AltFilename
	}
	if info.Filename != nil && *info.Filename != "" {
		return *info.Filename
	}
	return ""
}

// infoFromSlots builds the extraction info once the run returned.
// A missing title is derived from the reported filename.
func infoFromSlots(path, title *ResultSlot) models.ExtractionInfo {
	var info models.ExtractionInfo

	if p, ok := path.Get(); ok {
		info.ReportedPath = p
	}

	if t, ok := title.Get(); ok {
		info.Title = t
	} else if info.ReportedPath != "" {
		base := filepath.Base(info.ReportedPath)
		info.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return info
}
