package downloader

import (
	"strings"

	"ripit/pkg/models"
)

// User-facing messages for failures that carry no tool output
const (
	MsgValidation = "Please enter a valid video URL."
	MsgNotFound   = "File not found after download. Try another link."
)

// signInMarkers are lowercase fragments of yt-dlp errors for content behind a login or age gate
var signInMarkers = []string{
	"sign in",
	"login required",
	"age-restricted",
	"age restricted",
	"confirm your age",
	"inappropriate for some users",
}

// IsSignInRequired reports whether an extractor error message asks for authentication
func IsSignInRequired(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range signInMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// classify maps an extractor error onto a failure reason
func classify(err error) models.FailureReason {
	if IsSignInRequired(err.Error()) {
		return models.ReasonSignInRequired
	}
	return models.ReasonExtraction
}
