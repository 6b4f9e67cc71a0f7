package state

import (
	"github.com/indieinfra/stash/config"
	"github.com/indieinfra/stash/engine"
	"github.com/indieinfra/stash/storage/blob"
	"github.com/indieinfra/stash/storage/catalog"
)

// StashState bundles the configured stores and the engine built on top of
// them, so handlers receive one value instead of a parameter list.
type StashState struct {
	Cfg     *config.Config
	Blobs   blob.Store
	Catalog catalog.Store
	Engine  *engine.Engine
}
