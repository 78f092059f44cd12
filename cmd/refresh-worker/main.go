package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quickmed/opd-scheduling/internal/clinic"
	"github.com/quickmed/opd-scheduling/internal/config"
	"github.com/quickmed/opd-scheduling/internal/db"
	"github.com/quickmed/opd-scheduling/internal/logging"
	redisclient "github.com/quickmed/opd-scheduling/internal/redis"
)

// refresh-worker periodically recomputes the estimated wait of every
// waiting token for today. Estimates are also refreshed inline on queue
// changes; this worker bounds their staleness when traffic is idle.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init("refresh-worker", "dev")
		log.Fatal().Err(err).Msg("config load error")
	}

	logging.Init("refresh-worker", cfg.Env)
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("refresh-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	repo := clinic.NewPgRepository(pgPool)
	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	svc := clinic.NewService(repo, locker, cfg)

	// Run once at startup
	runOnce(rootCtx, svc)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping refresh worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc)
		}
	}
}

func runOnce(ctx context.Context, svc *clinic.Service) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	today := time.Now().Format(clinic.DateLayout)
	if err := svc.RefreshAllEstimates(runCtx, today); err != nil {
		log.Error().Err(err).Msg("estimate refresh error")
		return
	}
	log.Info().Dur("took", time.Since(start)).Msg("estimate refresh complete")
}
