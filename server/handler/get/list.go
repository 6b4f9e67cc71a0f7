package get

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/indieinfra/stash/server/auth"
	"github.com/indieinfra/stash/server/handler/common"
	"github.com/indieinfra/stash/server/resp"
	"github.com/indieinfra/stash/server/state"
	"github.com/indieinfra/stash/storage/catalog"
)

// ListResponse is a page of records plus the total match count, so clients
// can paginate without a second counting request.
type ListResponse struct {
	Items    []*catalog.MediaRecord `json:"items"`
	Total    int                    `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
}

func HandleList(st *state.StashState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := auth.GetIdentity(r.Context())
		if ident == nil {
			resp.WriteUnauthorized(w, "An access token is required")
			return
		}

		filter, ok := ParseFilter(w, r)
		if !ok {
			return
		}

		page, pageSize, ok := ParsePagination(w, r)
		if !ok {
			return
		}

		items, total, err := st.Engine.List(r.Context(), ident.OwnerID, filter, page, pageSize)
		if err != nil {
			common.LogAndWriteError(w, r, "list", err)
			return
		}

		WritePage(w, items, total, page, pageSize)
	}
}

func WritePage(w http.ResponseWriter, items []*catalog.MediaRecord, total, page, pageSize int) {
	if items == nil {
		items = []*catalog.MediaRecord{}
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = catalog.DefaultPageSize
	}
	if pageSize > catalog.MaxPageSize {
		pageSize = catalog.MaxPageSize
	}

	resp.WriteOK(w, ListResponse{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func ParseFilter(w http.ResponseWriter, r *http.Request) (catalog.Filter, bool) {
	var filter catalog.Filter

	if c := r.URL.Query().Get("category"); c != "" {
		cat := catalog.Category(c)
		if !cat.Valid() {
			resp.WriteInvalidRequest(w, fmt.Sprintf("unknown category %q", c))
			return filter, false
		}
		filter.Category = cat
	}

	if p := r.URL.Query().Get("privacy"); p != "" {
		filter.Privacy = catalog.NormalizePrivacy(p)
	}

	filter.Query = r.URL.Query().Get("q")

	return filter, true
}

func ParsePagination(w http.ResponseWriter, r *http.Request) (page int, pageSize int, ok bool) {
	page, ok = parsePositiveInt(w, r, "page")
	if !ok {
		return 0, 0, false
	}

	pageSize, ok = parsePositiveInt(w, r, "page_size")
	if !ok {
		return 0, 0, false
	}

	return page, pageSize, true
}

func parsePositiveInt(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		resp.WriteInvalidRequest(w, fmt.Sprintf("%s must be a positive integer", key))
		return 0, false
	}

	return n, true
}
