package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/payhuk02/payhula-sub010/internal/app"
	"github.com/payhuk02/payhula-sub010/internal/capacity"
	"github.com/payhuk02/payhula-sub010/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.New(startCtx, cfg, "worker")
	cancel()
	logger := deps.Logger
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error().Err(err).Msg("close dependencies")
		}
	}()
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	taskLogger := asynqLogger{logger: logger.With().Str("subsystem", "asynq").Logger()}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		Logger:      taskLogger,
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Error().Err(err).Str("task", task.Type()).Msg("task failed")
		}),
	})
	mux := asynq.NewServeMux()
	mux.Handle(capacity.TypeSweep, capacity.SweepHandler{Monitor: deps.CapacityMonitor()})
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}
	defer srv.Shutdown()

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Logger: taskLogger, Location: time.UTC})
	if err := scheduleSweep(scheduler, cfg); err != nil {
		logger.Fatal().Err(err).Msg("register capacity sweep")
	}
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start scheduler")
	}
	defer scheduler.Shutdown()

	logger.Info().Dur("interval", cfg.CapacitySweepInterval).Msg("worker starting")
	<-ctx.Done()
	logger.Info().Msg("worker shutdown complete")
}

type scheduleRegistrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

// scheduleSweep registers the periodic sweep. The task carries no day so each run sweeps the
// current UTC day; Unique keeps overlapping ticks from queueing twice.
func scheduleSweep(s scheduleRegistrar, cfg *config.Config) error {
	interval := cfg.CapacitySweepInterval
	if interval <= 0 {
		return fmt.Errorf("capacity sweep interval must be positive, got %s", interval)
	}
	task, err := capacity.NewSweepTask(time.Time{},
		asynq.MaxRetry(3),
		asynq.Timeout(cfg.LockTTL),
		asynq.Unique(interval),
	)
	if err != nil {
		return err
	}
	_, err = s.Register("@every "+interval.String(), task)
	return err
}
