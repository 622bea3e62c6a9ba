package main

import (
	"context"
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/upwatch/dispatch/internal/config"
	"github.com/upwatch/dispatch/internal/dispatch"
	"github.com/upwatch/dispatch/internal/httpapi"
	"github.com/upwatch/dispatch/internal/logging"
	"github.com/upwatch/dispatch/internal/probe"
	"github.com/upwatch/dispatch/internal/queue"
	qmem "github.com/upwatch/dispatch/internal/queue/memory"
	"github.com/upwatch/dispatch/internal/queue/redisstream"
	"github.com/upwatch/dispatch/internal/repo/memory"
	"github.com/upwatch/dispatch/internal/repo/postgres"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	var store httpapi.CatalogStore
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

	checker := probe.NewHTTPChecker(cfg.ProbeTimeout)
	pusher := &dispatch.Pusher{Log: logger, Websites: store, Regions: store, Queue: q}
	worker := &dispatch.Worker{
		Log:         logger,
		Websites:    store,
		Ticks:       store,
		Regions:     store,
		Queue:       q,
		Checker:     checker,
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.MaxConcurrentChecks,
	}

	api := httpapi.NewServer(logger, store, q, pusher, worker, cfg.PushRegionID)

	logger.Info("api_listen", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, api.Router(cfg.APIKeys, cfg.RateRPM, cfg.RateBurst)); err != nil {
		log.Fatal(err)
	}
}
