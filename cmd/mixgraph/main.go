// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/mixgraph/internal/catalog"
	"github.com/tomtom215/mixgraph/internal/config"
	"github.com/tomtom215/mixgraph/internal/database"
	"github.com/tomtom215/mixgraph/internal/engine"
	"github.com/tomtom215/mixgraph/internal/events"
	"github.com/tomtom215/mixgraph/internal/logging"
	"github.com/tomtom215/mixgraph/internal/persist"
	"github.com/tomtom215/mixgraph/internal/streamstore"
	"github.com/tomtom215/mixgraph/internal/supervisor"
	"github.com/tomtom215/mixgraph/internal/supervisor/services"
	"github.com/tomtom215/mixgraph/internal/wal"
)

//nolint:gocyclo // sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	logging.Info().
		Bool("audio", cfg.Audio.Enabled).
		Bool("video", cfg.Video.Enabled).
		Str("db_path", cfg.Database.Path).
		Msg("Starting Mixgraph")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	store := streamstore.New(db,
		streamstore.WithCache(cfg.Store.CacheEntries, int64(cfg.Store.CacheEntries)*int64(cfg.Store.ChunkSize)),
		streamstore.WithWriterWait(cfg.Store.WriterWait),
	)
	cat := catalog.New(db, store, cfg.Store.ChunkSize)

	journal, gc, err := openJournal(&cfg.WAL)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open chunk journal")
	}
	defer func() {
		if err := journal.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing chunk journal")
		}
	}()

	var (
		bus      *events.Bus
		observer *events.Observer
	)
	if cfg.Events.Enabled {
		bus, err = events.NewBus(cfg.Events)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to create event bus")
		}
		defer func() {
			if err := bus.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing event bus")
			}
		}()
		observer = events.NewObserver(bus)
	}

	queue := persist.NewQueue(cfg.Persist.QueueSize)
	var persistOpts []persist.Option
	if observer != nil {
		persistOpts = append(persistOpts, persist.WithObserver(observer))
	}
	persister := persist.NewPersister(store, journal, queue, cfg.Persist, persistOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Replay chunks a previous run journaled but never committed.
	if n, err := persister.Recover(ctx); err != nil {
		logging.Error().Err(err).Msg("Journal recovery failed")
	} else if n > 0 {
		logging.Info().Int("chunks", n).Msg("Recovered journaled chunks")
	}

	eng, err := engine.New(cfg, engine.Deps{
		Store:      store,
		Catalog:    cat,
		Queue:      queue,
		Workspaces: cat,
		Events:     observer,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create engine")
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing engine")
		}
	}()

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(services.NewPersisterService(persister))
	if gc != nil {
		tree.AddDataService(services.NewJournalGCService(gc))
	}
	for _, d := range eng.Domains() {
		tree.AddEngineService(services.NewDomainService(d))
	}
	if bus != nil {
		tree.AddEngineService(services.NewEventBusService(bus))
	}

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      newOpsRouter(cfg.Server, eng, db, cat),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	tree.AddOpsService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		if name := cfg.Engine.Workspace; name != "" {
			saveCtx, saveCancel := context.WithTimeout(context.Background(), cfg.Engine.CommandTimeout)
			saveWorkspace(saveCtx, eng, name)
			saveCancel()
		}
		drainGracefully(eng, cfg.Engine.DrainTimeout, sigCh)
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	if name := cfg.Engine.Workspace; name != "" {
		if err := restoreWorkspace(ctx, eng, name); err != nil {
			logging.Error().Err(err).Str("workspace", name).Msg("Failed to restore workspace")
		}
	}
	if cfg.Engine.Demo {
		if err := buildDemo(ctx, eng); err != nil {
			logging.Error().Err(err).Msg("Failed to build demo graph")
		}
	}

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().
		Int("persist_queue", queue.Len()).
		Msg("Mixgraph stopped")
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// drainGracefully stops every domain so recordings flush their last chunk
// before the supervisor tree is cancelled. A second signal skips the wait.
func drainGracefully(eng shutdowner, timeout time.Duration, sigCh <-chan os.Signal) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout+time.Second)
	defer cancel()
	go func() {
		select {
		case <-sigCh:
			logging.Warn().Msg("Second signal, abandoning drain")
			cancel()
		case <-ctx.Done():
		}
	}()
	if err := eng.Shutdown(ctx); err != nil {
		logging.Warn().Err(err).Msg("Graceful drain incomplete")
	}
}

// openJournal returns the configured chunk journal. The collector is nil
// when the journal is disabled.
func openJournal(cfg *config.WALConfig) (wal.Journal, services.JournalCollector, error) {
	if !cfg.Enabled {
		logging.Info().Msg("Chunk journal disabled (WAL_ENABLED=false)")
		return wal.Nop{}, nil, nil
	}
	j, err := wal.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal at %s: %w", cfg.Path, err)
	}
	return j, j, nil
}
