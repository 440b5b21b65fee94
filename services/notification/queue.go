package notification

import (
	"context"
	"fmt"

	"bookflow/models"
	"bookflow/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Enqueuer is the part of *asynq.Client the notifier needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueNotifier enqueues hand-off notifications so a slow push never holds a turn.
type QueueNotifier struct {
	queue  Enqueuer
	logger *zap.Logger
}

func NewQueueNotifier(queue Enqueuer, logger *zap.Logger) (*QueueNotifier, error) {
	if queue == nil {
		return nil, fmt.Errorf("notification initialization error: queue client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueNotifier{queue: queue, logger: logger}, nil
}

func (n *QueueNotifier) NotifyHandoff(ctx context.Context, p models.HandoffPayload) error {
	task, opts, err := tasks.NewHandoffTask(p)
	if err != nil {
		return fmt.Errorf("NotifyHandoff: failed to build task: %w", err)
	}
	info, err := n.queue.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("NotifyHandoff: failed to enqueue task: %w", err)
	}
	n.logger.Info("hand-off task enqueued",
		zap.String("sessionId", p.SessionID),
		zap.String("taskId", info.ID),
		zap.String("queue", info.Queue))
	return nil
}
