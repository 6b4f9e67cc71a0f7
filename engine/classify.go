package engine

import (
	"strings"

	"github.com/indieinfra/stash/storage/catalog"
)

// Classify maps a declared content type onto one of the four media
// categories. It is total: unknown or malformed content types classify as
// document. This is the sole authority for a record's category; whatever
// category the uploader declares is stored separately and never wins.
func Classify(contentType string) catalog.Category {
	ct := strings.ToLower(strings.TrimSpace(contentType))

	switch {
	case strings.HasPrefix(ct, "image/"):
		return catalog.CategoryImage
	case strings.HasPrefix(ct, "video/"):
		return catalog.CategoryVideo
	case strings.HasPrefix(ct, "audio/"):
		return catalog.CategoryAudio
	default:
		return catalog.CategoryDocument
	}
}
