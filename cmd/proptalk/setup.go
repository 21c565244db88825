package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/zulandar/proptalk/internal/backend"
	"github.com/zulandar/proptalk/internal/catalog"
	"github.com/zulandar/proptalk/internal/chat"
	"github.com/zulandar/proptalk/internal/config"
	"github.com/zulandar/proptalk/internal/logging"
	"github.com/zulandar/proptalk/internal/mapsync"
	"github.com/zulandar/proptalk/internal/property"
	"go.uber.org/zap"
)

// app is what most commands need: config, logger, backend client and,
// when it opens, the catalog cache.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	backend *backend.Client
	cache   *catalog.Store
}

type appOpts struct {
	configPath string
	// quiet discards logs unless the config names a log file. Interactive
	// surfaces use it so log lines never land on the terminal.
	quiet bool
	// withCache opens the catalog cache. A cache that fails to open is
	// logged and skipped.
	withCache bool
}

func newApp(opts appOpts) (*app, error) {
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return nil, err
	}

	var log *zap.Logger
	if opts.quiet && cfg.Log.File == "" {
		log = zap.NewNop()
	} else {
		log, err = logging.New(logging.Options{
			Level:       cfg.Log.Level,
			File:        cfg.Log.File,
			Development: cfg.Log.Development,
		})
		if err != nil {
			return nil, err
		}
	}

	bc, err := backend.NewClient(backend.ClientOpts{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    cfg.Backend.Timeout(),
		RatePerSec: cfg.Backend.RatePerSec,
		Burst:      cfg.Backend.Burst,
		Logger:     log.Named("backend"),
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, backend: bc}
	if opts.withCache {
		store, err := openStore(cfg)
		if err != nil {
			log.Warn("catalog cache unavailable", zap.Error(err))
		} else {
			a.cache = store
		}
	}
	return a, nil
}

func openStore(cfg *config.Config) (*catalog.Store, error) {
	db, err := catalog.Open(cfg.Catalog.Driver, cfg.Catalog.DSN)
	if err != nil {
		return nil, err
	}
	return catalog.NewStore(db)
}

// newClient builds a chat client on the app's backend. lib may be nil for
// a client without a map.
func (a *app) newClient(lib mapsync.Library) (*chat.Client, error) {
	opts := chat.ClientOpts{
		Backend:       a.backend,
		Logger:        a.log.Named("chat"),
		Library:       lib,
		MapCenter:     property.LatLng{Lat: a.cfg.Map.CenterLat, Lng: a.cfg.Map.CenterLng},
		MapZoom:       a.cfg.Map.Zoom,
		PollInterval:  a.cfg.Map.PollInterval(),
		LoadTimeout:   a.cfg.Map.LoadTimeout(),
		MapHidden:     !*a.cfg.Map.Visible,
		FollowResults: *a.cfg.Map.FollowResults,
	}
	if a.cache != nil {
		opts.Cache = a.cache
	}
	return chat.NewClient(opts)
}

func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("close catalog cache", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
