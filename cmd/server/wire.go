package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"note-sync/internal/clients/memory"
	"note-sync/internal/clients/mongo"
	"note-sync/internal/clients/remote"
	"note-sync/internal/clients/snapshot"
	"note-sync/internal/config"
	"note-sync/internal/services/auth"
	"note-sync/internal/services/notes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// agent is the fully wired sync agent.
type agent struct {
	engine   *notes.Engine
	prober   *notes.Prober
	session  *auth.Session
	registry *prometheus.Registry
	remote   *remote.Client
	// closeStore releases the local store; nil for in-memory stores.
	closeStore func(ctx context.Context) error
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (notes.Store, func(context.Context) error, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("using in-memory store, local changes do not survive a restart")
		return memory.NewStore(), nil, nil
	case config.StoreDriverMongo:
		_, db, err := mongo.Init(ctx, cfg, log)
		if err != nil {
			return nil, nil, fmt.Errorf("mongo init: %w", err)
		}
		store, err := mongo.NewLocalStore(ctx, db, log)
		if err != nil {
			_ = mongo.Shutdown(ctx)
			return nil, nil, err
		}
		return store, mongo.Shutdown, nil
	}
	return nil, nil, config.ErrStoreDriverUnsupported
}

// buildAgent wires the store, remote client, caches and engine from cfg.
// The monitor starts offline; the prober's first ping decides.
func buildAgent(ctx context.Context, cfg config.Config, log *slog.Logger) (*agent, error) {
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	session := auth.NewSession(cfg.APIToken, time.Now, log.With("component", "session"))
	client := remote.New(cfg, session, log.With("component", "remote"))
	monitor := notes.NewMonitor(false, log.With("component", "connectivity"))

	var snap notes.SnapshotCache
	if cfg.SnapshotPath != "" {
		snap = snapshot.NewFile(cfg.SnapshotPath, time.Duration(cfg.SnapshotTTLMin)*time.Minute, time.Now)
	}

	engine := notes.NewEngine(notes.EngineDeps{
		Store:    store,
		Remote:   client,
		Snapshot: snap,
		Monitor:  monitor,
		Metrics:  notes.NewMetrics(reg),
		Session:  session,
		Clock:    time.Now,
		Log:      log.With("component", "sync"),
	})

	return &agent{
		engine:     engine,
		prober:     notes.NewProber(client, monitor, time.Duration(cfg.ProbeIntervalSec)*time.Second, log.With("component", "prober")),
		session:    session,
		registry:   reg,
		remote:     client,
		closeStore: closeStore,
	}, nil
}

func (a *agent) routerDeps() routerDeps {
	return routerDeps{
		service:  a.engine.Service(),
		engine:   a.engine,
		session:  a.session,
		registry: a.registry,
		breaker:  a.remote,
	}
}
