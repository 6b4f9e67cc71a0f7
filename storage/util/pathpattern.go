package util

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// PathPattern represents a configurable pattern for generating blob paths.
// It supports placeholders that get replaced with actual values:
//   - {date}     - calendar day of upload (e.g., "2026-08-31")
//   - {year}     - 4-digit year (e.g., "2026")
//   - {month}    - 2-digit month (e.g., "01")
//   - {day}      - 2-digit day (e.g., "15")
//   - {ext}      - file extension (with leading dot, e.g., ".png")
//   - {name}     - the generated blob name without extension
//   - {filename} - full blob filename including extension
//
// Example patterns:
//   - "{date}/{filename}" → "2026-08-31/file-1756600000000-483920175.png"
//   - "{year}/{month}/{filename}" → "2026/08/file-1756600000000-483920175.png"
type PathPattern struct {
	pattern string
}

// NewPathPattern creates a new PathPattern from a template string.
func NewPathPattern(pattern string) *PathPattern {
	return &PathPattern{pattern: pattern}
}

// Generate produces a blob path by replacing placeholders with actual values.
// The name parameter is required. The timestamp is optional (pass time.Time{}
// to skip date-based placeholders). The extension is optional (pass empty
// string to skip).
func (p *PathPattern) Generate(name string, timestamp time.Time, ext string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name cannot be empty")
	}

	result := p.pattern

	// Replace date placeholders if timestamp is provided
	if !timestamp.IsZero() {
		result = strings.ReplaceAll(result, "{date}", timestamp.Format("2006-01-02"))
		result = strings.ReplaceAll(result, "{year}", fmt.Sprintf("%04d", timestamp.Year()))
		result = strings.ReplaceAll(result, "{month}", fmt.Sprintf("%02d", timestamp.Month()))
		result = strings.ReplaceAll(result, "{day}", fmt.Sprintf("%02d", timestamp.Day()))
	}

	// Ensure extension has leading dot if provided
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	// Build filename
	filename := name
	if ext != "" {
		filename = name + ext
	}

	// Replace name and filename placeholders
	result = strings.ReplaceAll(result, "{name}", name)
	result = strings.ReplaceAll(result, "{filename}", filename)
	result = strings.ReplaceAll(result, "{ext}", ext)

	// Clean the path (removes double slashes, etc.)
	result = filepath.Clean(result)

	return result, nil
}

// DefaultBlobPattern returns the default pattern for stored blobs.
// Pattern: "{date}/{filename}" (one directory per calendar day of upload)
func DefaultBlobPattern() *PathPattern {
	return NewPathPattern("{date}/{filename}")
}
