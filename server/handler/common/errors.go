package common

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/indieinfra/stash/engine"
	"github.com/indieinfra/stash/server/resp"
	"github.com/indieinfra/stash/server/util"
	"github.com/indieinfra/stash/storage/blob"
)

// LogAndWriteError logs an error with request context and maps known conditions to client responses.
// Access denials are rendered as not-found so callers cannot probe which ids exist.
func LogAndWriteError(w http.ResponseWriter, r *http.Request, op string, err error) {
	rl := util.FromContext(r.Context())
	if rl == nil {
		rl = util.WithRequest(log.Default(), r, "")
	}
	rl.Errorf("media %s failed: %v", op, err)

	var verr *engine.ValidationError

	switch {
	case errors.As(err, &verr):
		resp.WriteInvalidRequest(w, verr.Error())
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, engine.ErrForbidden):
		// Checked before ErrInconsistent: a dangling record on the read
		// path wraps both and must surface as absent, not as a conflict.
		resp.WriteNotFound(w, "not found")
	case errors.Is(err, engine.ErrInconsistent):
		resp.WriteConflict(w, "stored state is inconsistent for this record")
	case errors.Is(err, blob.ErrQuotaExceeded):
		resp.WritePayloadTooLarge(w, "file exceeds the maximum allowed size")
	default:
		resp.WriteInternalServerError(w, fmt.Sprintf("%s failed", op))
	}
}
