package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/indieinfra/stash/config"
	"github.com/indieinfra/stash/engine"
	"github.com/indieinfra/stash/server"
	"github.com/indieinfra/stash/server/state"
	blobfactory "github.com/indieinfra/stash/storage/blob/factory"
	catalogfactory "github.com/indieinfra/stash/storage/catalog/factory"
)

func main() {
	log.SetPrefix("stash: ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile | log.Lmsgprefix)

	configFile := flag.String("config", "config.yml", "Path to the configuration file (i.e., /etc/stash.yaml)")
	flag.Parse()

	if len(strings.Trim(*configFile, " ")) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	log.Println("loading configuration...")
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("could not load configuration: %v", err)
	}

	log.Printf("opening blob store (%s)...", cfg.Blobs.Strategy)
	blobs, err := blobfactory.Create(cfg)
	if err != nil {
		log.Fatalf("could not open blob store: %v", err)
	}

	log.Printf("opening media catalog (%s)...", cfg.Catalog.Strategy)
	cat, err := catalogfactory.Create(&cfg.Catalog)
	if err != nil {
		log.Fatalf("could not open media catalog: %v", err)
	}

	st := &state.StashState{
		Cfg:     cfg,
		Blobs:   blobs,
		Catalog: cat,
		Engine:  engine.New(cat, blobs, log.Default()),
	}

	log.Println("starting http server...")
	server.StartServer(st)
}
