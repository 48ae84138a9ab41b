package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgallion1/insurtree/internal/api"
	"github.com/dgallion1/insurtree/internal/config"
	"github.com/dgallion1/insurtree/internal/engine"
	"github.com/dgallion1/insurtree/internal/mcpserver"
	"github.com/dgallion1/insurtree/internal/pipeline"
	"github.com/dgallion1/insurtree/internal/query"
	"github.com/dgallion1/insurtree/internal/stats"
	"github.com/dgallion1/insurtree/internal/store"
	"github.com/dgallion1/insurtree/internal/store/backend"
	"github.com/dgallion1/insurtree/internal/watch"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage and the query engine.
	st, err := backend.Open(ctx, cfg, log)
	if err != nil {
		log.Error("open store", "engine", cfg.StoreEngine, "error", err)
		os.Exit(1)
	}
	policy, err := engine.ParseDanglingPolicy(cfg.DanglingParentPolicy)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	eng := engine.New(
		engine.WithWorkers(cfg.AggregateWorkers),
		engine.WithDanglingPolicy(policy),
	)
	writer := store.NewWriter(st, eng)
	svc := query.NewService(st, eng, stats.NewQueryStats(cfg.StatsWindow, time.Hour), log)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, writer, log)
	orch.Start(ctx)

	if cfg.SeedFile != "" {
		if err := loadSeed(ctx, orch, cfg.SeedFile, log); err != nil {
			log.Error("seed import failed", "path", cfg.SeedFile, "error", err)
			os.Exit(1)
		}
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	watchDone := make(chan struct{})
	if cfg.WatchSeedFile {
		w, err := watch.New(cfg.SeedFile, 500*time.Millisecond, func(path string) {
			if _, err := submitSeed(orch, path); err != nil {
				log.Warn("seed reload not queued", "path", path, "error", err)
			}
		}, log)
		if err != nil {
			log.Error("watch seed file", "error", err)
			os.Exit(1)
		}
		go func() {
			defer close(watchDone)
			w.Run(watchCtx)
		}()
	} else {
		close(watchDone)
	}

	var mcpHandler http.Handler
	if cfg.MCPEnabled {
		mcpHandler = mcpserver.Handler(mcpserver.New(svc, version))
	}

	// Initialize HTTP server.
	srv := api.NewServer(svc, writer, orch, mcpHandler, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigCtx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	log.Info("starting insurtree", "port", cfg.Port, "store", cfg.StoreEngine, "version", version)
	// Producers stop before the queue closes; the store closes last.
	err = serve(sigCtx, httpServer, log, func() {
		stopWatch()
		<-watchDone
		orch.Stop()
		if err := st.Close(); err != nil {
			log.Warn("close store", "error", err)
		}
	})
	if err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// serve runs srv until ctx is done, then shuts it down and runs cleanup. It returns
// only after cleanup has finished.
func serve(ctx context.Context, srv *http.Server, log *slog.Logger, cleanup func()) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		cleanup()
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) && err == nil {
		err = serveErr
	}
	cleanup()
	return err
}

// submitSeed queues path as a replace-mode import.
func submitSeed(orch *pipeline.Orchestrator, path string) (*pipeline.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	job := pipeline.NewJob(filepath.Base(path), store.ModeReplace, data)
	if err := orch.Submit(job); err != nil {
		return nil, err
	}
	return job, nil
}

// loadSeed imports the seed file and waits for it so the first query sees it.
func loadSeed(ctx context.Context, orch *pipeline.Orchestrator, path string, log *slog.Logger) error {
	job, err := submitSeed(orch, path)
	if err != nil {
		return err
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return err
	}
	snap := job.Snapshot()
	if status != pipeline.StatusCompleted {
		return fmt.Errorf("job %s %s: %v", job.ID, status, snap.Progress.Errors)
	}
	log.Info("seed imported", "path", path, "records", snap.Progress.RecordsStored)
	return nil
}
