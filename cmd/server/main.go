package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"note-sync/internal/config"
	"note-sync/internal/logger"

	"github.com/grafana/pyroscope-go"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	bootstrapLog := log.New(os.Stderr, "bootstrap: ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		bootstrapLog.Printf("config load failed: %v", err)
		os.Exit(1)
	}

	logg, err := logger.Init(cfg)
	if err != nil {
		bootstrapLog.Printf("logger init failed: %v", err)
		os.Exit(1)
	}

	if cfg.PyroscopeServerAddress != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "note-sync",
			ServerAddress:   cfg.PyroscopeServerAddress,
		})
		if err != nil {
			logg.Warn("pyroscope disabled", "err", err)
		} else {
			defer func() { _ = profiler.Stop() }()
		}
	}

	a, err := buildAgent(ctx, cfg, logg)
	if err != nil {
		logg.Error("agent init", "err", err)
		os.Exit(1)
	}

	logg.Info("starting NoteSync", "port", cfg.AppPort, "store", cfg.StoreDriver, "api", cfg.APIBaseURL)

	app := setupRouter(ctx, cfg, a.routerDeps())
	portStr := fmt.Sprintf(":%d", cfg.AppPort)

	a.engine.Start(ctx)

	g.Go(func() error {
		return a.prober.Run(ctx)
	})

	g.Go(func() error {
		err := app.Listen(portStr)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	// Graceful shutdown
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()

		a.engine.Stop()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		a.engine.Wait()
		if a.closeStore != nil {
			return a.closeStore(shutdownCtx)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error("fatal", "err", err)
		os.Exit(1)
	}
	logg.Info("graceful shutdown complete")
}
