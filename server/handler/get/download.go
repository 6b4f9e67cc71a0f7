package get

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gosimple/slug"

	"github.com/indieinfra/stash/server/auth"
	"github.com/indieinfra/stash/server/handler/common"
	"github.com/indieinfra/stash/server/resp"
	"github.com/indieinfra/stash/server/state"
	"github.com/indieinfra/stash/server/util"
)

func HandleDownload(st *state.StashState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			resp.WriteInvalidRequest(w, "a media id is required")
			return
		}

		ident := auth.GetIdentity(r.Context())

		dl, err := st.Engine.Retrieve(r.Context(), id, ident)
		if err != nil {
			common.LogAndWriteError(w, r, "download", err)
			return
		}
		defer dl.Body.Close()

		w.Header().Set("Content-Type", dl.ContentType)
		if dl.Record.SizeBytes > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(dl.Record.SizeBytes, 10))
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", downloadFilename(dl.Record.DisplayName, dl.Record.OriginalName)))

		if _, err := io.Copy(w, dl.Body); err != nil {
			// Headers are already out; all we can do is log the broken stream.
			rl := util.FromContext(r.Context())
			if rl == nil {
				rl = util.WithRequest(log.Default(), r, "")
			}
			rl.Errorf("streaming media %s aborted: %v", id, err)
		}
	}
}

func HandleInfo(st *state.StashState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			resp.WriteInvalidRequest(w, "a media id is required")
			return
		}

		ident := auth.GetIdentity(r.Context())

		rec, err := st.Engine.Describe(r.Context(), id, ident)
		if err != nil {
			common.LogAndWriteError(w, r, "info", err)
			return
		}

		resp.WriteOK(w, rec)
	}
}

// downloadFilename builds a header-safe filename from the display name,
// keeping the original extension.
func downloadFilename(displayName, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))

	base := slug.Make(displayName)
	if base == "" {
		base = "download"
	}

	return base + ext
}
