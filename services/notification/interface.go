package notification

import (
	"context"

	"bookflow/models"
)

// HandoffSender delivers a hand-off alert to the human operators.
type HandoffSender interface {
	SendHandoff(ctx context.Context, p models.HandoffPayload) error
}
