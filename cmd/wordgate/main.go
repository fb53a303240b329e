// wordgate is the vocabulary tab-blocking daemon: it tracks browser tabs
// reported by the companion extension, schedules periodic vocabulary
// questions per tab, and serves the block decision over a local HTTP API.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wordgate/wordgate/internal/api"
	"github.com/wordgate/wordgate/internal/config"
	"github.com/wordgate/wordgate/internal/infrastructure/persistence/sqlite"
	"github.com/wordgate/wordgate/internal/logging"
	"github.com/wordgate/wordgate/internal/questions"
	"github.com/wordgate/wordgate/internal/scheduler"
)

// Build-time variables (set via ldflags).
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

const (
	persistInterval = time.Minute
	sweepInterval   = 30 * time.Second
)

func main() {
	root := &cobra.Command{
		Use:   "wordgate",
		Short: "Vocabulary tab-blocking daemon",
		Long:  "wordgate interrupts browsing with vocabulary questions, keeping each tab blocked until the question is answered correctly.",
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler daemon and command surface",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("wordgate %s (%s) built %s with %s\n", version, commit, buildDate, runtime.Version())
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	manager, err := config.NewManager()
	if err != nil {
		return fmt.Errorf("create config manager: %w", err)
	}
	if err := manager.Load(); err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg := manager.Get()

	logger := logging.NewFromConfigValues(cfg.Logging.Level, cfg.Logging.Format)
	ctx = logging.WithContext(ctx, logger)
	log := logging.FromContext(ctx)
	log.Info().Str("version", version).Msg("wordgate starting")

	// Storage is optional: on failure the scheduler runs from memory only
	// and recovers durability on the next restart with a healthy disk.
	var db *sql.DB
	store := scheduler.NewStore(nil)
	timers := scheduler.NewTimerSet(scheduler.SystemClock(), nil, nil)
	if db, err = sqlite.NewConnection(ctx, cfg.Database.Path); err != nil {
		log.Warn().Err(err).Msg("durable storage unavailable; running in-memory only")
	} else {
		defer func() { _ = sqlite.Close(db) }()
		store = scheduler.NewStore(sqlite.NewTabStateRepository(db))
		timers = scheduler.NewTimerSet(scheduler.SystemClock(), sqlite.NewAlarmRepository(db), nil)
	}

	outbox := api.NewOutbox()
	svc := scheduler.NewService(ctx, cfg.Blocking, store, timers, outbox, scheduler.SystemClock())

	manager.OnChange(func(c *config.Config) {
		svc.ApplyConfig(ctx, c.Blocking)
	})
	manager.Watch()

	if err := svc.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("state restore incomplete; continuing with what loaded")
	}

	provider := questions.NewStaticProvider(time.Now().UnixNano())
	server := api.NewServer(ctx, cfg.API.ListenAddr, svc, provider, manager, outbox)
	if err := server.Start(); err != nil {
		return fmt.Errorf("start command surface: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(persistInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				svc.Persist(gctx)
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				svc.Sweep(gctx)
			}
		}
	})

	<-gctx.Done()
	log.Info().Msg("shutting down")

	if err := server.Stop(); err != nil {
		log.Warn().Err(err).Msg("command surface shutdown failed")
	}

	// Final flush so a clean shutdown loses nothing.
	flushCtx := logging.WithContext(context.Background(), logger)
	svc.Persist(flushCtx)

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
