package locator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripit/pkg/models"
)

var (
	audioTarget = Target{Ext: ".mp3", SourceExts: []string{".webm", ".m4a"}}
	videoTarget = Target{Ext: ".mp4", SourceExts: []string{".webm", ".mkv"}}
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("data"), 0644))
	}
}

func TestRewriteExt(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		target Target
		want   string
	}{
		{name: "webm to mp3", path: "/d/Song.webm", target: audioTarget, want: "/d/Song.mp3"},
		{name: "m4a to mp3", path: "/d/Song.m4a", target: audioTarget, want: "/d/Song.mp3"},
		{name: "webm to mp4", path: "/d/Clip.webm", target: videoTarget, want: "/d/Clip.mp4"},
		{name: "already target", path: "/d/Clip.mp4", target: videoTarget, want: "/d/Clip.mp4"},
		{name: "unknown extension kept", path: "/d/Clip.flv", target: videoTarget, want: "/d/Clip.flv"},
		{name: "only suffix replaced", path: "/d/my.webm.tutorial.webm", target: videoTarget, want: "/d/my.webm.tutorial.mp4"},
		{name: "case insensitive", path: "/d/Song.WEBM", target: audioTarget, want: "/d/Song.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tt.want), RewriteExt(filepath.FromSlash(tt.path), tt.target))
		})
	}
}

func TestRewriteLocator(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Song Title.mp3")

	loc := RewriteLocator{}

	path, ok := loc.Locate(dir, models.ExtractionInfo{ReportedPath: filepath.Join(dir, "Song Title.webm")}, audioTarget)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "Song Title.mp3"), path)

	// Rewritten path does not exist
	_, ok = loc.Locate(dir, models.ExtractionInfo{ReportedPath: filepath.Join(dir, "Other.webm")}, audioTarget)
	assert.False(t, ok)

	// Nothing reported
	_, ok = loc.Locate(dir, models.ExtractionInfo{Title: "Song Title"}, audioTarget)
	assert.False(t, ok)
}

func TestRewriteLocatorOutsideDir(t *testing.T) {
	dir := t.TempDir()
	elsewhere := t.TempDir()
	touch(t, elsewhere, "Song Title.mp3")

	loc := RewriteLocator{}

	_, ok := loc.Locate(dir, models.ExtractionInfo{ReportedPath: filepath.Join(elsewhere, "Song Title.webm")}, audioTarget)
	assert.False(t, ok, "file exists but not in the output directory")

	_, ok = loc.Locate(dir, models.ExtractionInfo{ReportedPath: filepath.Join(dir, "..", filepath.Base(elsewhere), "Song Title.webm")}, audioTarget)
	assert.False(t, ok, "relative escape")

	// Relative output directory with a matching relative reported path still resolves
	sub := filepath.Join(dir, "downloads")
	require.NoError(t, os.MkdirAll(sub, 0755))
	touch(t, sub, "Clip.mp3")
	t.Chdir(dir)

	path, ok := loc.Locate("downloads", models.ExtractionInfo{ReportedPath: filepath.Join("downloads", "Clip.webm")}, audioTarget)
	require.True(t, ok)
	assert.Equal(t, filepath.Join("downloads", "Clip.mp3"), path)
}

func TestScanLocator(t *testing.T) {
	tests := []struct {
		name   string
		files  []string
		title  string
		target Target
		want   string
	}{
		{
			name:   "title match with target extension",
			files:  []string{"Song Title.webm", "Song Title.mp3"},
			title:  "Song Title",
			target: audioTarget,
			want:   "Song Title.mp3",
		},
		{
			name:   "substring match",
			files:  []string{"Artist - Song Title (Official).mp3"},
			title:  "Song Title",
			target: audioTarget,
			want:   "Artist - Song Title (Official).mp3",
		},
		{
			name:   "first by name wins",
			files:  []string{"b Clip.mp4", "a Clip.mp4"},
			title:  "Clip",
			target: videoTarget,
			want:   "a Clip.mp4",
		},
		{
			name:   "wrong extension",
			files:  []string{"Song Title.m4a"},
			title:  "Song Title",
			target: audioTarget,
		},
		{
			name:   "title differs",
			files:  []string{"Another.mp3"},
			title:  "Song Title",
			target: audioTarget,
		},
		{
			name:   "sanitized title does not match",
			files:  []string{"AC_DC - Song.mp3"},
			title:  "AC/DC - Song",
			target: audioTarget,
		},
		{
			name:   "empty title never matches",
			files:  []string{"Song.mp3"},
			title:  "",
			target: audioTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			touch(t, dir, tt.files...)

			path, ok := ScanLocator{}.Locate(dir, models.ExtractionInfo{Title: tt.title}, tt.target)
			if tt.want == "" {
				assert.False(t, ok)
				assert.Empty(t, path)
				return
			}

			require.True(t, ok)
			assert.Equal(t, filepath.Join(dir, tt.want), path)
		})
	}
}

func TestScanLocatorSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Song Title.mp3"), 0755))

	_, ok := ScanLocator{}.Locate(dir, models.ExtractionInfo{Title: "Song Title"}, audioTarget)
	assert.False(t, ok)
}

func TestScanLocatorMissingDirectory(t *testing.T) {
	_, ok := ScanLocator{}.Locate(filepath.Join(t.TempDir(), "missing"), models.ExtractionInfo{Title: "x"}, audioTarget)
	assert.False(t, ok)
}

func TestDefaultFallsBackToScan(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Song Title.mp3")

	info := models.ExtractionInfo{
		Title: "Song Title",
		// Reported name differs from what ended up on disk
		ReportedPath: filepath.Join(dir, "Song_Title.webm"),
	}

	path, ok := Default().Locate(dir, info, audioTarget)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "Song Title.mp3"), path)
}

func TestDefaultPrefersRewrite(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "A Clip.mp4", "Clip.mp4")

	info := models.ExtractionInfo{
		Title:        "Clip",
		ReportedPath: filepath.Join(dir, "Clip.webm"),
	}

	path, ok := Default().Locate(dir, info, videoTarget)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "Clip.mp4"), path)
}

func TestChainOrder(t *testing.T) {
	var calls []string
	first := Func(func(string, models.ExtractionInfo, Target) (string, bool) {
		calls = append(calls, "first")
		return "", false
	})
	second := Func(func(string, models.ExtractionInfo, Target) (string, bool) {
		calls = append(calls, "second")
		return "/found", true
	})
	third := Func(func(string, models.ExtractionInfo, Target) (string, bool) {
		calls = append(calls, "third")
		return "/never", true
	})

	path, ok := Chain{first, second, third}.Locate("", models.ExtractionInfo{}, audioTarget)
	require.True(t, ok)
	assert.Equal(t, "/found", path)
	assert.Equal(t, []string{"first", "second"}, calls)

	_, ok = Chain{}.Locate("", models.ExtractionInfo{}, audioTarget)
	assert.False(t, ok)
}
