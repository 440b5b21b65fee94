package cron

import (
	"context"
	"fmt"
	"time"

	"bookflow/config"
	"bookflow/services/notification"
	"bookflow/services/tasks"
	"bookflow/utils"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// HandoffRedisOpt points asynq at the hand-off queue database.
func HandoffRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisHandoffQueueDB,
	}
}

// InitHandoffWorker runs the hand-off worker in background.
func InitHandoffWorker(sender notification.HandoffSender) {
	logger := utils.GetLogger().With(zap.String("component", "handoff-worker"))

	srv := asynq.NewServer(
		HandoffRedisOpt(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				tasks.QueueHandoff: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeHandoffNotify, handleHandoffTask(sender, logger))

	go monitorRedisConnection(logger)

	go func() {
		logger.Info("starting hand-off worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				logger.Error("hand-off worker failed to start",
					zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))

				if attempts == maxAttempts {
					logger.Fatal("hand-off worker: max retry attempts reached")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleHandoffTask(sender notification.HandoffSender, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseHandoffTask(task)
		if err != nil {
			logger.Error("invalid hand-off payload", zap.Error(err))
			return fmt.Errorf("decode hand-off payload: %v: %w", err, asynq.SkipRetry)
		}

		logger.Info("notifying operators",
			zap.String("sessionId", p.SessionID),
			zap.String("stage", p.StageID),
			zap.String("reason", p.Reason))

		if err := sender.SendHandoff(ctx, p); err != nil {
			logger.Error("failed to notify operators", zap.String("sessionId", p.SessionID), zap.Error(err))
			return err
		}
		return nil
	}
}

// monitorRedisConnection pings the queue database periodically to detect failures at runtime.
func monitorRedisConnection(logger *zap.Logger) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisHandoffQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("hand-off queue redis connection lost", zap.Error(err))
		}
		time.Sleep(10 * time.Second)
	}
}
