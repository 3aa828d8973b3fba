// Package locator finds the artifact an extraction left in the output directory.
//
// Two strategies exist. RewriteLocator trusts the path the extractor reported before
// post-processing and swaps the container extension for the target one. ScanLocator lists
// the directory and matches on the target extension and the reported title. Default chains
// them so the scan is only a fallback.
package locator

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ripit/pkg/models"
)

// Target describes the artifact being looked for
type Target struct {
	// Ext is the final extension including the dot, e.g. ".mp3"
	Ext string
	// SourceExts are container extensions the extractor may report before conversion
	SourceExts []string
}

// Locator resolves the artifact path, or reports false when it is not on disk
type Locator interface {
	Locate(dir string, info models.ExtractionInfo, target Target) (string, bool)
}

// Func adapts a function to Locator
type Func func(dir string, info models.ExtractionInfo, target Target) (string, bool)

// Locate calls f
func (f Func) Locate(dir string, info models.ExtractionInfo, target Target) (string, bool) {
	return f(dir, info, target)
}

// RewriteLocator maps the reported pre-conversion path onto the target extension.
// Paths outside dir are rejected.
type RewriteLocator struct{}

// Locate implements Locator
func (RewriteLocator) Locate(dir string, info models.ExtractionInfo, target Target) (string, bool) {
	if info.ReportedPath == "" || target.Ext == "" {
		return "", false
	}

	path := RewriteExt(info.ReportedPath, target)
	if !within(dir, path) || !fileExists(path) {
		return "", false
	}

	return path, true
}

// RewriteExt replaces a known source extension suffix with the target extension.
// Paths with any other extension are returned unchanged.
func RewriteExt(path string, target Target) string {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, target.Ext) {
		return path
	}

	for _, src := range target.SourceExts {
		if strings.EqualFold(ext, src) {
			return strings.TrimSuffix(path, ext) + target.Ext
		}
	}

	return path
}

// ScanLocator returns the first file, by name, ending in the target extension
// whose name contains the reported title.
type ScanLocator struct{}

// Locate implements Locator
func (ScanLocator) Locate(dir string, info models.ExtractionInfo, target Target) (string, bool) {
	if info.Title == "" || target.Ext == "" {
		return "", false
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if !strings.HasSuffix(strings.ToLower(name), strings.ToLower(target.Ext)) {
			continue
		}
		if !strings.Contains(name, info.Title) {
			continue
		}

		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path, true
		}
	}

	return "", false
}

// Chain tries each locator in order and returns the first hit
type Chain []Locator

// Locate implements Locator
func (c Chain) Locate(dir string, info models.ExtractionInfo, target Target) (string, bool) {
	for _, l := range c {
		if path, ok := l.Locate(dir, info, target); ok {
			return path, true
		}
	}
	return "", false
}

// Default returns the rewrite strategy with the directory scan as fallback
func Default() Locator {
	return Chain{RewriteLocator{}, ScanLocator{}}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// within reports whether path resolves to an entry below dir
func within(dir, path string) bool {
	root, err := filepath.Abs(dir)
	if err != nil {
		return false
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return false
	}

	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
