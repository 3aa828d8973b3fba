package downloader

import (
	"context"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ripit/internal/extractor"
	"ripit/internal/locator"
	"ripit/internal/workspace"
	"ripit/pkg/models"
)

// Downloader runs one request end to end: validate, purge the output
// directory, extract, then locate the artifact.
type Downloader struct {
	// run serializes requests; the output directory is shared
	run sync.Mutex

	mu    sync.RWMutex
	state State

	workspace     *workspace.Manager
	extractor     extractor.Extractor
	locator       locator.Locator
	template      string
	logger        zerolog.Logger
	onStateChange func(requestID string, state State)
}

// Option configures a Downloader
type Option func(*Downloader)

// WithLocator replaces the default rewrite-then-scan locator
func WithLocator(l locator.Locator) Option {
	return func(d *Downloader) {
		d.locator = l
	}
}

// WithTemplate sets the output naming template
func WithTemplate(template string) Option {
	return func(d *Downloader) {
		d.template = template
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// WithStateHook registers a callback invoked on every state transition
func WithStateHook(fn func(requestID string, state State)) Option {
	return func(d *Downloader) {
		d.onStateChange = fn
	}
}

// NewDownloader creates a new downloader
func NewDownloader(ws *workspace.Manager, ex extractor.Extractor, opts ...Option) *Downloader {
	d := &Downloader{
		state:     StateIdle,
		workspace: ws,
		extractor: ex,
		locator:   locator.Default(),
		template:  extractor.DefaultTemplate,
		logger:    zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.logger = d.logger.With().Str("component", "downloader").Logger()

	return d
}

// State returns the last state reached
func (d *Downloader) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Workspace returns the output directory manager
func (d *Downloader) Workspace() *workspace.Manager {
	return d.workspace
}

// PerformDownload runs a request and returns its result. It never panics on
// tool failures; every failure is reported through the result's Reason.
// The call blocks for the whole download and conversion.
func (d *Downloader) PerformDownload(ctx context.Context, req models.DownloadRequest) models.DownloadResult {
	d.run.Lock()
	defer d.run.Unlock()

	requestID := uuid.NewString()
	logger := d.logger.With().
		Str("request_id", requestID).
		Str("url", req.SourceURL).
		Str("format", req.Format.String()).
		Logger()

	d.transition(requestID, logger, StateValidating)
	if !req.Valid() {
		return d.fail(requestID, logger, req, models.ReasonValidation, MsgValidation)
	}

	d.transition(requestID, logger, StatePurging)
	d.purge(logger)

	d.transition(requestID, logger, StateExtracting)
	policy := extractor.PolicyFor(req.Format)
	info, err := d.extractor.Extract(ctx, extractor.ExtractRequest{
		SourceURL: req.SourceURL,
		Policy:    policy,
		OutputDir: d.workspace.Path(),
		Template:  d.template,
	})
	if err != nil {
		reason := classify(err)
		logger.Error().Err(err).Str("reason", reason.String()).Msg("extraction failed")
		return d.fail(requestID, logger, req, reason, err.Error())
	}

	d.transition(requestID, logger, StateLocating)
	path, ok := d.locator.Locate(d.workspace.Path(), info, policy.Target)
	if !ok || !nonEmpty(path) {
		logger.Warn().
			Str("title", info.Title).
			Str("reported_path", info.ReportedPath).
			Msg("no artifact found after extraction")
		return d.fail(requestID, logger, req, models.ReasonNotFound, MsgNotFound)
	}

	d.transition(requestID, logger, StateSucceeded)
	logger.Info().Str("path", path).Msg("download complete")

	return models.DownloadResult{
		FilePath: path,
		MimeType: req.Format.MimeType(),
		Reason:   models.ReasonNone,
	}
}

// purge clears the output directory; failures are logged and ignored
func (d *Downloader) purge(logger zerolog.Logger) {
	removed, failed := d.workspace.Purge()
	for _, err := range failed {
		logger.Warn().Err(err).Msg("failed to clear output entry")
	}
	logger.Debug().Int("removed", removed).Int("failed", len(failed)).Msg("output directory purged")
}

func (d *Downloader) fail(requestID string, logger zerolog.Logger, req models.DownloadRequest, reason models.FailureReason, detail string) models.DownloadResult {
	d.transition(requestID, logger, StateFailed)
	return models.DownloadResult{
		MimeType: req.Format.MimeType(),
		Reason:   reason,
		Detail:   detail,
	}
}

func (d *Downloader) transition(requestID string, logger zerolog.Logger, state State) {
	d.mu.Lock()
	d.state = state
	d.mu.Unlock()

	logger.Debug().Str("state", state.String()).Msg("state change")

	if d.onStateChange != nil {
		d.onStateChange(requestID, state)
	}
}

func nonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
