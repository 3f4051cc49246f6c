package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"launchpad/internal/analytics"
	"launchpad/internal/auction"
	"launchpad/internal/contribution"
	"launchpad/internal/domain"
	"launchpad/internal/evaluation"
	"launchpad/internal/ledger"
	"launchpad/internal/lifecycle"
	"launchpad/internal/oracle"
	"launchpad/internal/settlement"
	"launchpad/internal/storage"
	"launchpad/internal/storage/memory"
	"launchpad/internal/storage/migrations"
	pgstore "launchpad/internal/storage/postgres"
	"launchpad/internal/vesting"
)

// allStores holds every store the engine needs.
type allStores struct {
	projects      storage.ProjectStore
	schedule      storage.ScheduleStore
	evaluations   storage.EvaluationStore
	bids          storage.BidStore
	contributions storage.ContributionStore
	seqs          storage.SequenceStore
}

func main() {
	// Load .env file if present
	loadEnvFile()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	oracleWS := flag.String("oracle-ws", os.Getenv("ORACLE_WS_ENDPOINT"), "Oracle WebSocket endpoint (static prices when empty)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	startBlock := flag.Uint64("start-block", 0, "Block number to resume the clock from")
	blockInterval := flag.Duration("block-interval", 6*time.Second, "Wall-clock duration of one block")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	// Setup logger
	logger := logrus.New()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatalf("invalid --log-level %q: %v", *logLevel, err)
	}
	logger.SetLevel(level)

	// Validate required flags
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create stores and the snapshot recorder
	stores, recorder, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("create stores: %v", err)
	}
	defer cleanup()

	// Price source: live feed when an endpoint is given, static otherwise
	var prices oracle.PriceProvider
	if *oracleWS != "" {
		feed, err := oracle.NewFeed(ctx, *oracleWS, nil)
		if err != nil {
			logger.Fatalf("connect to oracle feed: %v", err)
		}
		defer feed.Close()
		prices = feed
		logger.WithField("endpoint", *oracleWS).Info("Using live oracle feed")
	} else {
		prices = oracle.NewStatic(oracle.DefaultPrices())
		logger.Warn("No --oracle-ws endpoint, using static default prices")
	}

	assets := ledger.NewMemory()
	book := vesting.NewBook()

	controller := lifecycle.New(lifecycle.Options{
		Projects: stores.projects,
		Schedule: stores.schedule,
		Evaluation: evaluation.New(evaluation.Options{
			Evaluations: stores.evaluations, Seqs: stores.seqs, Assets: assets, Prices: prices,
		}),
		Auction: auction.New(auction.Options{
			Bids: stores.bids, Seqs: stores.seqs, Assets: assets, Prices: prices,
		}),
		Contribution: contribution.New(contribution.Options{
			Contributions: stores.contributions, Bids: stores.bids, Evaluations: stores.evaluations,
			Seqs: stores.seqs, Assets: assets, Prices: prices,
		}),
		Settlement: settlement.New(settlement.Options{
			Evaluations: stores.evaluations, Bids: stores.bids, Contributions: stores.contributions,
			Assets: assets, Prices: prices, Schedules: book,
		}),
		Recorder: recorder,
		Logger:   logger,
	})

	// Block clock: every interval advances the chain by one block and runs
	// the due transitions. Overlapping ticks are skipped, not queued, so a
	// slow settlement round cannot pile up goroutines.
	clock := newBlockClock(controller, domain.BlockNumber(*startBlock), logger)
	runner := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err = runner.AddFunc(fmt.Sprintf("@every %s", blockInterval.String()), func() {
		clock.tick(ctx)
	})
	if err != nil {
		logger.Fatalf("schedule block clock: %v", err)
	}

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Infof("Received signal %v, initiating graceful shutdown", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Infof("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	logger.WithFields(logrus.Fields{
		"start_block":    *startBlock,
		"block_interval": blockInterval.String(),
		"use_memory":     *useMemory,
	}).Info("Engine started")

	runner.Start()
	<-ctx.Done()

	// Let an in-flight tick finish before releasing resources
	<-runner.Stop().Done()
	close(done)

	logger.Info("Shutdown complete")
}

// blockClock owns the monotonic block counter behind the cron schedule.
type blockClock struct {
	mu         sync.Mutex
	block      domain.BlockNumber
	controller *lifecycle.Controller
	logger     logrus.FieldLogger
}

func newBlockClock(c *lifecycle.Controller, start domain.BlockNumber, logger logrus.FieldLogger) *blockClock {
	return &blockClock{block: start, controller: c, logger: logger}
}

func (b *blockClock) tick(ctx context.Context) {
	b.mu.Lock()
	b.block++
	now := b.block
	b.mu.Unlock()

	b.controller.AdvanceBlock(ctx, now)
	b.logger.WithField("block", now).Debug("Block advanced")
}

// createStores creates all required stores and the snapshot recorder.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, lifecycle.Recorder, func(), error) {
	if useMemory {
		stores := &allStores{
			projects:      memory.NewProjectStore(),
			schedule:      memory.NewScheduleStore(),
			evaluations:   memory.NewEvaluationStore(),
			bids:          memory.NewBidStore(),
			contributions: memory.NewContributionStore(),
			seqs:          memory.NewSequenceStore(),
		}
		return stores, analytics.NewMemoryRecorder(), func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	// ClickHouse
	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	stores := &allStores{
		projects:      pgstore.NewProjectStore(pool),
		schedule:      pgstore.NewScheduleStore(pool),
		evaluations:   pgstore.NewEvaluationStore(pool),
		bids:          pgstore.NewBidStore(pool),
		contributions: pgstore.NewContributionStore(pool),
		seqs:          pgstore.NewSequenceStore(pool),
	}
	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return stores, analytics.NewSnapshotStore(conn), cleanup, nil
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
