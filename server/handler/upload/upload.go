package upload

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/indieinfra/stash/engine"
	"github.com/indieinfra/stash/server/auth"
	"github.com/indieinfra/stash/server/handler/common"
	"github.com/indieinfra/stash/server/resp"
	"github.com/indieinfra/stash/server/state"
	"github.com/indieinfra/stash/server/util"
)

func HandleMediaUpload(st *state.StashState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, ok := util.RequireValidUploadContentType(w, r)
		if !ok {
			return
		}

		ident := auth.GetIdentity(r.Context())
		if ident == nil {
			resp.WriteUnauthorized(w, "An access token is required")
			return
		}

		maxMemory := int64(st.Cfg.Server.Limits.MaxMultipartMem)
		maxFileSize := int64(st.Cfg.Server.Limits.MaxFileSize)

		// Allow headroom for the metadata fields alongside the file part.
		pm, err := util.ParseMultipart(w, r, maxMemory, maxFileSize+maxMemory)
		if err != nil {
			resp.WriteInvalidRequest(w, fmt.Sprintf("could not parse multipart body: %v", err))
			return
		}
		defer pm.CloseFiles()

		mf := pm.FileByKey("file")
		if mf == nil {
			resp.WriteInvalidRequest(w, "a \"file\" part is required")
			return
		}

		req := engine.IngestRequest{
			Payload:          mf.File,
			ContentType:      mf.Header.Header.Get("Content-Type"),
			OriginalName:     mf.Header.Filename,
			DeclaredSize:     mf.Header.Size,
			DisplayName:      pm.Values["title"],
			Description:      pm.Values["description"],
			Tags:             splitTags(pm.Values["tags"]),
			DeclaredCategory: pm.Values["category"],
			Privacy:          pm.Values["privacy"],
		}

		rec, err := st.Engine.Ingest(r.Context(), ident.OwnerID, req)
		if err != nil {
			common.LogAndWriteError(w, r, "upload", err)
			return
		}

		resp.WriteCreated(w, fmt.Sprintf("/media/%s", rec.ID), rec)
	}
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}

	return tags
}
