package admin

import (
	"net/http"

	"github.com/indieinfra/stash/server/auth"
	"github.com/indieinfra/stash/server/handler/common"
	"github.com/indieinfra/stash/server/handler/get"
	"github.com/indieinfra/stash/server/resp"
	"github.com/indieinfra/stash/server/state"
)

// HandleAdminList lists records across all owners, optionally narrowed to
// one owner via the "owner" query parameter. Non-admin identities get the
// same not-found shape as any other denied access.
func HandleAdminList(st *state.StashState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := auth.GetIdentity(r.Context())
		if ident == nil {
			resp.WriteUnauthorized(w, "An access token is required")
			return
		}

		filter, ok := get.ParseFilter(w, r)
		if !ok {
			return
		}

		page, pageSize, ok := get.ParsePagination(w, r)
		if !ok {
			return
		}

		owner := r.URL.Query().Get("owner")

		items, total, err := st.Engine.AdminList(r.Context(), ident, owner, filter, page, pageSize)
		if err != nil {
			common.LogAndWriteError(w, r, "admin list", err)
			return
		}

		get.WritePage(w, items, total, page, pageSize)
	}
}

// HandleAdminRemove deletes any record regardless of owner. The engine
// enforces that the identity is actually an admin.
func HandleAdminRemove(st *state.StashState) http.HandlerFunc {
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
			common.LogAndWriteError(w, r, "admin delete", err)
			return
		}

		resp.WriteNoContent(w)
	}
}
