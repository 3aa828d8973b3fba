package ytdl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	ytdlpReleaseAPI = "https://api.github.com/repos/yt-dlp/yt-dlp/releases/latest"
	versionFile     = ".yt-dlp-version"
	transcoderName  = "ffmpeg"
)

var (
	ErrNoAsset = errors.New("no asset found for platform")
)

// HTTPClient is the subset of *http.Client used for release downloads
type HTTPClient interface {
	Get(url string) (*http.Response, error)
}

// Manager handles yt-dlp installation and updates, and locates the external tools
type Manager struct {
	mu             sync.RWMutex
	utilsDir       string
	currentVersion string
	client         HTTPClient
	lookPath       func(file string) (string, error)
	logger         zerolog.Logger
}

// GitHubRelease represents a GitHub release
type GitHubRelease struct {
	TagName string `json:"tag_name"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// NewManager creates a new yt-dlp manager
func NewManager(utilsDir string) *Manager {
	return NewManagerWithClient(utilsDir, http.DefaultClient)
}

// NewManagerWithClient creates a new yt-dlp manager using the given HTTP client
func NewManagerWithClient(utilsDir string, client HTTPClient) *Manager {
	// Ensure utils directory exists
	os.MkdirAll(utilsDir, 0755)

	m := &Manager{
		utilsDir: utilsDir,
		client:   client,
		lookPath: exec.LookPath,
		logger:   zerolog.Nop(),
	}

	if data, err := os.ReadFile(filepath.Join(utilsDir, versionFile)); err == nil {
		m.currentVersion = strings.TrimSpace(string(data))
	}

	return m
}

// SetLogger sets the logger used for install and update messages
func (m *Manager) SetLogger(logger zerolog.Logger) {
	m.logger = logger.With().Str("component", "ytdl").Logger()
}

// GetYtdlpPath returns the path to the managed yt-dlp executable
func (m *Manager) GetYtdlpPath() string {
	filename := detectPlatform()
	return filepath.Join(m.utilsDir, filename)
}

// IsInstalled checks if the managed yt-dlp is installed
func (m *Manager) IsInstalled() bool {
	_, err := os.Stat(m.GetYtdlpPath())
	return err == nil
}

// GetCurrentVersion returns the currently installed version
func (m *Manager) GetCurrentVersion() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentVersion
}

// ResolveExecutable picks the yt-dlp binary: the configured path, then the
// managed install, then whatever "yt-dlp" is on PATH.
func (m *Manager) ResolveExecutable(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured, nil
		}
		if path, err := m.lookPath(configured); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("configured yt-dlp not found: %s", configured)
	}

	if m.IsInstalled() {
		return m.GetYtdlpPath(), nil
	}

	path, err := m.lookPath("yt-dlp")
	if err != nil {
		return "", fmt.Errorf("yt-dlp not found: %w", err)
	}
	return path, nil
}

// TranscoderPath returns the ffmpeg executable yt-dlp will use for conversion
func (m *Manager) TranscoderPath() (string, error) {
	path, err := m.lookPath(transcoderName)
	if err != nil {
		return "", fmt.Errorf("%s not found: %w", transcoderName, err)
	}
	return path, nil
}

// TranscoderAvailable reports whether ffmpeg is on PATH
func (m *Manager) TranscoderAvailable() bool {
	_, err := m.TranscoderPath()
	return err == nil
}

// fetchRelease gets the latest release info from GitHub
func (m *Manager) fetchRelease() (*GitHubRelease, error) {
	resp, err := m.client.Get(ytdlpReleaseAPI)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse release info: %w", err)
	}

	return &release, nil
}

// CheckForUpdate checks if a newer version is available
func (m *Manager) CheckForUpdate() (string, bool, error) {
	release, err := m.fetchRelease()
	if err != nil {
		return "", false, fmt.Errorf("failed to check for updates: %w", err)
	}

	// If not installed, any version is an update
	if !m.IsInstalled() {
		return release.TagName, true, nil
	}

	current := m.GetCurrentVersion()
	if current == "" || current != release.TagName {
		return release.TagName, true, nil
	}

	return release.TagName, false, nil
}

// Download downloads and installs yt-dlp
func (m *Manager) Download() error {
	release, err := m.fetchRelease()
	if err != nil {
		return err
	}

	// Find the correct asset for this platform
	platform := detectPlatform()
	var downloadURL string
	for _, asset := range release.Assets {
		if asset.Name == platform {
			downloadURL = asset.BrowserDownloadURL
			break
		}
	}

	if downloadURL == "" {
		return fmt.Errorf("%w: %s", ErrNoAsset, platform)
	}

	m.logger.Info().Str("version", release.TagName).Msg("downloading yt-dlp")
	resp, err := m.client.Get(downloadURL)
	if err != nil {
		return fmt.Errorf("failed to download yt-dlp: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	// Write to a temp file next to the target, then swap
	ytdlpPath := m.GetYtdlpPath()
	tmpPath := ytdlpPath + ".tmp"

	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, err = io.Copy(out, resp.Body)
	out.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0755); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to make executable: %w", err)
	}

	if m.IsInstalled() {
		if err := os.Remove(ytdlpPath); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to remove old file: %w", err)
		}
	}

	if err := os.Rename(tmpPath, ytdlpPath); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	m.mu.Lock()
	m.currentVersion = release.TagName
	m.mu.Unlock()

	if err := os.WriteFile(filepath.Join(m.utilsDir, versionFile), []byte(release.TagName), 0644); err != nil {
		m.logger.Warn().Err(err).Msg("failed to record yt-dlp version")
	}

	m.logger.Info().Str("version", release.TagName).Str("path", ytdlpPath).Msg("yt-dlp installed")

	return nil
}

// EnsureInstalled ensures yt-dlp is installed, downloading if necessary
func (m *Manager) EnsureInstalled() error {
	if m.IsInstalled() {
		return nil
	}

	m.logger.Info().Msg("yt-dlp not found, downloading")
	return m.Download()
}

// AutoUpdate checks for and applies updates if available
func (m *Manager) AutoUpdate() error {
	latestVersion, hasUpdate, err := m.CheckForUpdate()
	if err != nil {
		return err
	}

	if !hasUpdate {
		m.logger.Info().Str("version", latestVersion).Msg("yt-dlp is up to date")
		return nil
	}

	m.logger.Info().Str("version", latestVersion).Msg("updating yt-dlp")
	return m.Download()
}

// detectPlatform returns the appropriate yt-dlp binary name for the current platform
func detectPlatform() string {
	switch runtime.GOOS {
	case "windows":
		return "yt-dlp.exe"
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "yt-dlp_linux_aarch64"
		}
		return "yt-dlp_linux"
	case "darwin":
		return "yt-dlp_macos"
	default:
		return "yt-dlp"
	}
}
