package server

import (
	"fmt"
	"log"
	"net"
	"net/http"

	"golang.org/x/net/netutil"

	"github.com/indieinfra/stash/server/handler/admin"
	"github.com/indieinfra/stash/server/handler/get"
	"github.com/indieinfra/stash/server/handler/remove"
	"github.com/indieinfra/stash/server/handler/upload"
	"github.com/indieinfra/stash/server/middleware"
	"github.com/indieinfra/stash/server/state"
)

// BuildMux wires every route. Download and info take an optional identity so
// public records stay reachable without credentials; everything else
// requires one.
func BuildMux(st *state.StashState) *http.ServeMux {
	cfg := st.Cfg

	mux := http.NewServeMux()
	mux.Handle("POST /media", middleware.RequireIdentity(cfg, upload.HandleMediaUpload(st)))
	mux.Handle("GET /media", middleware.RequireIdentity(cfg, get.HandleList(st)))
	mux.Handle("GET /media/stats", middleware.RequireIdentity(cfg, get.HandleStats(st)))
	mux.Handle("GET /media/search", middleware.RequireIdentity(cfg, get.HandleSearch(st)))
	mux.Handle("GET /media/admin/all", middleware.RequireIdentity(cfg, admin.HandleAdminList(st)))
	mux.Handle("DELETE /media/admin/{id}", middleware.RequireIdentity(cfg, admin.HandleAdminRemove(st)))
	mux.Handle("GET /media/{id}", middleware.OptionalIdentity(cfg, get.HandleDownload(st)))
	mux.Handle("GET /media/{id}/info", middleware.OptionalIdentity(cfg, get.HandleInfo(st)))
	mux.Handle("DELETE /media/{id}", middleware.RequireIdentity(cfg, remove.HandleRemove(st)))

	return mux
}

func StartServer(st *state.StashState) {
	mux := BuildMux(st)

	bindAddress := fmt.Sprintf("%v:%v", st.Cfg.Server.Address, st.Cfg.Server.Port)

	ln, err := net.Listen("tcp", bindAddress)
	if err != nil {
		log.Fatal(err)
	}

	if max := st.Cfg.Server.Limits.MaxConnections; max > 0 {
		ln = netutil.LimitListener(ln, max)
	}

	log.Printf("serving http requests on %q", bindAddress)
	log.Fatal(http.Serve(ln, mux))
}
