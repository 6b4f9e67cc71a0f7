package remove

import (
	"net/http"

	"github.com/indieinfra/stash/server/auth"
	"github.com/indieinfra/stash/server/handler/common"
	"github.com/indieinfra/stash/server/resp"
	"github.com/indieinfra/stash/server/state"
)

func HandleRemove(st *state.StashState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			resp.WriteInvalidRequest(w, "a media id is required")
			return
		}

		ident := auth.GetIdentity(r.Context())
		if ident == nil {
			resp.WriteUnauthorized(w, "An access token is required")
			return
		}

		if err := st.Engine.Remove(r.Context(), id, ident); err != nil {
			common.LogAndWriteError(w, r, "delete", err)
			return
		}

		resp.WriteNoContent(w)
	}
}
