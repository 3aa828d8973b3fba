package api

import (
	"bytes"
	"net/http"

	"ripit/pkg/models"
)

// pageData is rendered by pageTemplate
type pageData struct {
	URL               string
	Audio             bool
	Message           string
	Detail            string
	Severity          string
	TranscoderMissing bool
	TranscoderMessage string
}

func (s *Server) newPage(sourceURL string, format models.DownloadFormat) pageData {
	page := pageData{
		URL:   sourceURL,
		Audio: format == models.FormatAudioMP3,
	}
	if s.tools != nil && !s.tools.TranscoderAvailable() {
		page.TranscoderMissing = true
		page.TranscoderMessage = msgNoTranscoder
	}
	return page
}

func (p pageData) warn(message, detail string) pageData {
	p.Message, p.Detail, p.Severity = message, detail, "warning"
	return p
}

func (p pageData) fail(message, detail string) pageData {
	p.Message, p.Detail, p.Severity = message, detail, "error"
	return p
}

// render executes the page into a buffer before writing the status
func (s *Server) render(w http.ResponseWriter, status int, page pageData) {
	var buf bytes.Buffer
	if err := s.page.Execute(&buf, page); err != nil {
		s.logger.Error().Err(err).Msg("failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>RipIt</title>
<style>
body { background: #EFEEE8; color: #000; font-family: sans-serif; margin: 0; }
main { max-width: 640px; margin: 2rem auto; padding: 0 1rem; text-align: center; }
form { display: flex; flex-wrap: wrap; gap: 10px; justify-content: center; }
input[type=url] { flex: 1; min-width: 250px; padding: 8px; border-radius: 10px; border: 1px solid #ccc; }
fieldset { border: none; }
button { background: #ff4b4b; color: #fff; font-weight: bold; border: none; border-radius: 8px; padding: 10px 24px; }
.warning { background: #fff4d6; border: 1px solid #e0b000; padding: 1rem; border-radius: 8px; margin: 1rem 0; }
.error { background: #ffe3e3; border: 1px solid #d00; padding: 1rem; border-radius: 8px; margin: 1rem 0; }
.detail { font-family: monospace; font-size: 0.85em; white-space: pre-wrap; text-align: left; }
</style>
</head>
<body>
<main>
<h1>RipIt</h1>
<p>Download a video as <strong>MP4</strong> or <strong>MP3</strong>.</p>
{{if .TranscoderMissing}}<div class="error" role="alert">{{.TranscoderMessage}}</div>{{end}}
{{if .Message}}<div class="{{.Severity}}" role="alert">
<p>{{.Message}}</p>
{{if .Detail}}<p class="detail">{{.Detail}}</p>{{end}}
</div>{{end}}
<form method="post" action="/download">
<input type="url" name="url" placeholder="https://youtu.be/..." value="{{.URL}}" aria-label="Video URL">
<fieldset>
<label><input type="radio" name="format" value="mp4"{{if not .Audio}} checked{{end}}> Video (MP4)</label>
<label><input type="radio" name="format" value="mp3"{{if .Audio}} checked{{end}}> Audio (MP3)</label>
</fieldset>
<button type="submit">Download</button>
</form>
</main>
</body>
</html>
`
