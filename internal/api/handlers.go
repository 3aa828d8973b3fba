package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"ripit/internal/downloader"
	"ripit/internal/workspace"
	"ripit/pkg/models"
)

const (
	maxFormBytes    = 64 << 10
	maxCookiesBytes = 1 << 20

	msgRateLimited   = "Too many downloads. Wait a moment and try again."
	msgBadFormat     = "Please choose MP4 or MP3."
	msgSignIn        = "This video needs a signed-in account. Upload YouTube cookies and try again."
	msgExtraction    = "Download failed."
	msgNoTranscoder  = "FFmpeg not found. Install it and add it to PATH; MP3 conversion and MP4 merging need it."
	cookiesSavedText = "Cookies received"
)

var (
	ErrInvalidCookies = errors.New("invalid cookies")
)

// handleIndex renders the empty form
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, s.newPage("", models.FormatVideoMP4))
}

// handleDownload runs one download and streams the artifact back
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, s.newPage("", models.FormatVideoMP4).warn(downloader.MsgValidation, ""))
		return
	}

	sourceURL := r.PostFormValue("url")
	format, err := models.ParseDownloadFormat(r.PostFormValue("format"))
	if err != nil {
		s.render(w, http.StatusBadRequest, s.newPage(sourceURL, models.FormatVideoMP4).warn(msgBadFormat, ""))
		return
	}

	page := s.newPage(sourceURL, format)

	// Blank submissions fail validation without spending a token
	if strings.TrimSpace(sourceURL) != "" && s.limiter != nil && !s.limiter.Allow() {
		s.render(w, http.StatusTooManyRequests, page.warn(msgRateLimited, ""))
		return
	}

	result := s.downloader.PerformDownload(r.Context(), models.DownloadRequest{
		SourceURL: sourceURL,
		Format:    format,
	})

	if !result.Succeeded() {
		s.renderFailure(w, page, result)
		return
	}

	s.serveArtifact(w, r, page, result)
}

// renderFailure maps a failed result onto a status code and message
func (s *Server) renderFailure(w http.ResponseWriter, page pageData, result models.DownloadResult) {
	switch result.Reason {
	case models.ReasonValidation:
		s.render(w, http.StatusBadRequest, page.warn(result.Detail, ""))
	case models.ReasonSignInRequired:
		s.render(w, http.StatusUnprocessableEntity, page.warn(msgSignIn, result.Detail))
	case models.ReasonNotFound:
		s.render(w, http.StatusNotFound, page.fail(result.Detail, ""))
	default:
		s.render(w, http.StatusBadGateway, page.fail(msgExtraction, result.Detail))
	}
}

// serveArtifact streams the file as an attachment
func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, page pageData, result models.DownloadResult) {
	f, info, err := s.downloader.Workspace().Open(result.FilePath)
	if err != nil {
		s.logger.Error().Err(err).Str("path", result.FilePath).Msg("failed to open artifact")
		status := http.StatusInternalServerError
		if errors.Is(err, workspace.ErrOutsideWorkspace) {
			status = http.StatusForbidden
		}
		s.render(w, status, page.fail(downloader.MsgNotFound, ""))
		return
	}
	defer f.Close()

	s.logger.Info().
		Str("file", info.Name()).
		Str("size", humanize.Bytes(uint64(info.Size()))).
		Msg("serving artifact")

	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", contentDisposition(result.FileName()))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// contentDisposition builds an attachment header; non-ASCII names are encoded per RFC 2231
func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}

// handleHealth handles health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleStatus reports tool availability and the output directory
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"running": s.IsRunning(),
		"state":   s.downloader.State().String(),
		"version": Version,
		"backend": s.config.Extractor.Backend,
		"output":  s.outputStatus(),
		"cookies": fileExists(s.cookiesPath),
	}

	if s.tools != nil {
		ytdlp := map[string]interface{}{
			"managed": s.tools.IsInstalled(),
			"version": s.tools.GetCurrentVersion(),
		}
		if path, err := s.tools.ResolveExecutable(s.config.Extractor.Path); err == nil {
			ytdlp["path"] = path
		}
		response["ytdlp"] = ytdlp
		response["transcoder"] = s.tools.TranscoderAvailable()
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) outputStatus() map[string]interface{} {
	ws := s.downloader.Workspace()
	status := map[string]interface{}{
		"dir": ws.Path(),
	}

	entries, err := ws.List()
	if err != nil {
		status["files"] = 0
		return status
	}

	var total int64
	files := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		total += e.Size
		files = append(files, map[string]string{
			"name": e.Name,
			"size": humanize.Bytes(uint64(e.Size)),
		})
	}

	status["files"] = files
	status["size"] = humanize.Bytes(uint64(total))
	return status
}

// handleCookies stores a Netscape cookie file for the extractor
func (s *Server) handleCookies(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCookiesBytes))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	if err := validateCookies(string(body)); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := saveCookies(s.cookiesPath, body); err != nil {
		s.logger.Error().Err(err).Msg("failed to save cookies")
		http.Error(w, "Failed to save cookies", http.StatusInternalServerError)
		return
	}

	s.logger.Info().Str("path", s.cookiesPath).Msg("cookies updated")

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": cookiesSavedText,
	})
}

// validateCookies accepts a Netscape cookie file: the header line or at least one 7-field entry
func validateCookies(cookies string) error {
	if strings.TrimSpace(cookies) == "" {
		return fmt.Errorf("%w: empty body", ErrInvalidCookies)
	}

	scanner := bufio.NewScanner(strings.NewReader(cookies))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "# Netscape HTTP Cookie File") || strings.HasPrefix(line, "# HTTP Cookie File") {
			return nil
		}

		// #HttpOnly_ prefixed entries are still cookies
		line = strings.TrimPrefix(line, "#HttpOnly_")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if len(strings.Split(line, "\t")) == 7 {
			return nil
		}
	}

	return fmt.Errorf("%w: not a Netscape cookie file", ErrInvalidCookies)
}

// saveCookies writes cookies next to the config, outside the purged output directory
func saveCookies(path string, cookies []byte) error {
	if path == "" {
		return errors.New("no cookies path configured")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cookies directory: %w", err)
	}

	if err := os.WriteFile(path, cookies, 0600); err != nil {
		return fmt.Errorf("failed to write cookies file: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
