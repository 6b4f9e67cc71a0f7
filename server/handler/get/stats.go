package get

import (
	"net/http"

	"github.com/indieinfra/stash/server/auth"
	"github.com/indieinfra/stash/server/handler/common"
	"github.com/indieinfra/stash/server/resp"
	"github.com/indieinfra/stash/server/state"
)

func HandleStats(st *state.StashState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := auth.GetIdentity(r.Context())
		if ident == nil {
			resp.WriteUnauthorized(w, "An access token is required")
			return
		}

		stats, err := st.Engine.Stats(r.Context(), ident.OwnerID)
		if err != nil {
			common.LogAndWriteError(w, r, "stats", err)
			return
		}

		resp.WriteOK(w, stats)
	}
}
