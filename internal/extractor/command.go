package extractor

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"ripit/pkg/models"
)

// CommandExtractor runs the yt-dlp binary directly and reads its info JSON from stdout
type CommandExtractor struct {
	opts   Options
	logger zerolog.Logger
}

// NewCommandExtractor creates an exec-based extractor
func NewCommandExtractor(opts Options) *CommandExtractor {
	if opts.Executable == "" {
		opts.Executable = "yt-dlp"
	}

	return &CommandExtractor{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "extractor").Str("backend", models.BackendExec).Logger(),
	}
}

// Args builds the yt-dlp command line for a request
func (e *CommandExtractor) Args(req ExtractRequest) []string {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--dump-json",
		"--no-simulate",
		"-f", req.Policy.Selector,
		"-o", filepath.Join(req.OutputDir, req.template()),
	}

	if req.Policy.MergeOutputFormat != "" {
		args = append(args, "--merge-output-format", req.Policy.MergeOutputFormat)
	}

	if req.Policy.ExtractAudio {
		args = append(args, "-x", "--audio-format", req.Policy.AudioCodec)
		if req.Policy.AudioQuality != "" {
			args = append(args, "--audio-quality", req.Policy.AudioQuality)
		}
	}

	if cookies := e.opts.cookiesPath(); cookies != "" {
		args = append(args, "--cookies", cookies)
	}

	args = append(args, e.opts.AdditionalArgs...)

	// The URL is user input; keep it from being parsed as an option
	args = append(args, "--", req.SourceURL)

	return args
}

// Extract implements Extractor
func (e *CommandExtractor) Extract(ctx context.Context, req ExtractRequest) (models.ExtractionInfo, error) {
	args := e.Args(req)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.opts.Executable, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug().Str("executable", e.opts.Executable).Strs("args", args).Msg("running yt-dlp")

	if err := cmd.Run(); err != nil {
		return models.ExtractionInfo{}, failure(stderr.String(), err)
	}

	info, ok := ParseInfo(stdout.Bytes())
	if !ok {
		e.logger.Warn().Str("url", req.SourceURL).Msg("yt-dlp printed no info JSON")
	}

	return info, nil
}

// ParseInfo reads the first info JSON line printed by yt-dlp
func ParseInfo(output []byte) (models.ExtractionInfo, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") || !gjson.Valid(line) {
			continue
		}

		title := gjson.Get(line, "title")
		if !title.Exists() {
			continue
		}

		path := gjson.Get(line, "_filename").String()
		if path == "" {
			path = gjson.Get(line, "filename").String()
		}

		return models.ExtractionInfo{
			Title:        title.String(),
			ReportedPath: path,
		}, true
	}

	return models.ExtractionInfo{}, false
}
