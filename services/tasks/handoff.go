package tasks

import (
	"encoding/json"

	"bookflow/models"

	"github.com/hibiken/asynq"
)

const TypeHandoffNotify = "handoff:notify"

// QueueHandoff is the asynq queue hand-off notifications are enqueued on.
const QueueHandoff = "handoff"

func NewHandoffTask(payload models.HandoffPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeHandoffNotify, b)
	opts := []asynq.Option{asynq.Queue(QueueHandoff), asynq.MaxRetry(5)}

	return task, opts, nil
}

// ParseHandoffTask decodes the payload of a handoff:notify task.
func ParseHandoffTask(task *asynq.Task) (models.HandoffPayload, error) {
	var p models.HandoffPayload
	err := json.Unmarshal(task.Payload(), &p)
	return p, err
}
