package engine

import (
	"testing"

	"github.com/indieinfra/stash/storage/catalog"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		contentType string
		want        catalog.Category
	}{
		{"image/png", catalog.CategoryImage},
		{"image/svg+xml", catalog.CategoryImage},
		{"IMAGE/JPEG", catalog.CategoryImage},
		{" video/mp4 ", catalog.CategoryVideo},
		{"audio/ogg", catalog.CategoryAudio},
		{"application/pdf", catalog.CategoryDocument},
		{"text/plain", catalog.CategoryDocument},
		{"imagefake/x", catalog.CategoryDocument},
		{"image", catalog.CategoryDocument},
		{"", catalog.CategoryDocument},
	}

	for _, tc := range cases {
		if got := Classify(tc.contentType); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.contentType, got, tc.want)
		}
	}
}
