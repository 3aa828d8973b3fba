package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DownloadFormat represents the requested output format
type DownloadFormat int

const (
	FormatVideoMP4 DownloadFormat = iota
	FormatAudioMP3
)

func (f DownloadFormat) String() string {
	switch f {
	case FormatVideoMP4:
		return "mp4"
	case FormatAudioMP3:
		return "mp3"
	default:
		return "unknown"
	}
}

// Ext returns the artifact file extension including the dot
func (f DownloadFormat) Ext() string {
	return "." + f.String()
}

// MimeType returns the content type served for the artifact
func (f DownloadFormat) MimeType() string {
	switch f {
	case FormatAudioMP3:
		return "audio/mpeg"
	default:
		return "video/mp4"
	}
}

// ParseDownloadFormat parses a format name as submitted by the form or CLI
func ParseDownloadFormat(s string) (DownloadFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mp4", "video":
		return FormatVideoMP4, nil
	case "mp3", "audio":
		return FormatAudioMP3, nil
	default:
		return FormatVideoMP4, fmt.Errorf("unknown format: %q", s)
	}
}

// DownloadRequest represents a single user request
type DownloadRequest struct {
	SourceURL string
	Format    DownloadFormat
}

// Valid reports whether the source URL is non-empty after trimming
func (r DownloadRequest) Valid() bool {
	return strings.TrimSpace(r.SourceURL) != ""
}

// FailureReason classifies why a request did not produce an artifact
type FailureReason int

const (
	ReasonNone FailureReason = iota
	ReasonValidation
	ReasonExtraction
	ReasonSignInRequired
	ReasonNotFound
)

func (r FailureReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonValidation:
		return "validation"
	case ReasonExtraction:
		return "extraction"
	case ReasonSignInRequired:
		return "sign_in_required"
	case ReasonNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Severity returns how the failure should be presented: "warning" or "error"
func (r FailureReason) Severity() string {
	switch r {
	case ReasonValidation, ReasonSignInRequired:
		return "warning"
	default:
		return "error"
	}
}

// DownloadResult is the outcome of a request. FilePath is empty on failure.
type DownloadResult struct {
	FilePath string
	MimeType string
	Reason   FailureReason
	Detail   string
}

// Succeeded reports whether an artifact was produced
func (r DownloadResult) Succeeded() bool {
	return r.FilePath != "" && r.Reason == ReasonNone
}

// FileName returns the base name of the artifact
func (r DownloadResult) FileName() string {
	if r.FilePath == "" {
		return ""
	}
	return filepath.Base(r.FilePath)
}

// ExtractionInfo is the metadata reported by the extractor after it finishes
type ExtractionInfo struct {
	Title        string
	ReportedPath string
}
