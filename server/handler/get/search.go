package get

import (
	"net/http"
	"strings"

	"github.com/indieinfra/stash/server/auth"
	"github.com/indieinfra/stash/server/handler/common"
	"github.com/indieinfra/stash/server/resp"
	"github.com/indieinfra/stash/server/state"
)

// HandleSearch is owner-scoped listing with a required query term. The match
// is a case-insensitive substring over display name, description and tags.
func HandleSearch(st *state.StashState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := auth.GetIdentity(r.Context())
		if ident == nil {
			resp.WriteUnauthorized(w, "An access token is required")
			return
		}

		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			resp.WriteInvalidRequest(w, "a search term \"q\" is required")
			return
		}

		filter, ok := ParseFilter(w, r)
		if !ok {
			return
		}
		filter.Query = query

		page, pageSize, ok := ParsePagination(w, r)
		if !ok {
			return
		}

		items, total, err := st.Engine.List(r.Context(), ident.OwnerID, filter, page, pageSize)
		if err != nil {
			common.LogAndWriteError(w, r, "search", err)
			return
		}

		WritePage(w, items, total, page, pageSize)
	}
}
