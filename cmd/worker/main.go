// Standalone long-running region worker. One process serves one
// (region, worker id) pair; scale out by starting more processes with
// distinct WORKER_IDs against the same region.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/upwatch/dispatch/internal/config"
	"github.com/upwatch/dispatch/internal/dispatch"
	"github.com/upwatch/dispatch/internal/logging"
	"github.com/upwatch/dispatch/internal/probe"
	"github.com/upwatch/dispatch/internal/queue"
	qmem "github.com/upwatch/dispatch/internal/queue/memory"
	"github.com/upwatch/dispatch/internal/queue/redisstream"
	"github.com/upwatch/dispatch/internal/repo"
	"github.com/upwatch/dispatch/internal/repo/memory"
	"github.com/upwatch/dispatch/internal/repo/postgres"
)

func main() {
	regionID := os.Getenv("REGION_ID")
	workerID := os.Getenv("WORKER_ID")
	if regionID == "" {
		log.Fatal("REGION_ID not provided")
	}
	if workerID == "" {
		log.Fatal("WORKER_ID not provided")
	}

	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store interface {
		repo.WebsiteStore
		repo.RegionStore
		repo.TickStore
	}
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			log.Fatal(err)
		}
		defer pg.Close()
		store = pg
	} else {
		store = memory.New()
	}

	var q queue.Queue
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal(err)
		}
		q = redisstream.New(redis.NewClient(opt), cfg.ReclaimAfter)
	} else {
		q = qmem.New(cfg.ReclaimAfter)
	}

	w := &dispatch.Worker{
		Log:         logger,
		Websites:    store,
		Ticks:       store,
		Regions:     store,
		Queue:       q,
		Checker:     probe.NewHTTPChecker(cfg.ProbeTimeout),
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.MaxConcurrentChecks,
	}

	logger.Info("worker_start",
		zap.String("region_id", regionID),
		zap.String("worker_id", workerID),
	)

	// No delay between batches while the queue has work; sleep only when a
	// read comes back empty so we don't busy-spin.
	for {
		if ctx.Err() != nil {
			logger.Info("worker_stopped")
			return
		}
		rep, err := w.RunOnce(ctx, regionID, workerID)
		switch {
		case err != nil:
			logger.Error("worker_pass_failed", zap.Error(err))
			sleep(ctx, cfg.WorkerPoll)
		case rep.Total == 0:
			sleep(ctx, cfg.WorkerPoll)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
