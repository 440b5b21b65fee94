package notification

import (
	"context"
	"fmt"

	"bookflow/models"

	"firebase.google.com/go/v4/messaging"
)

// Messenger is the part of *messaging.Client the sender needs.
type Messenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMHandoffSender pushes hand-off alerts to every operator device subscribed to a topic.
type FCMHandoffSender struct {
	client Messenger
	topic  string
}

func NewFCMHandoffSender(client Messenger, topic string) (*FCMHandoffSender, error) {
	if client == nil || topic == "" {
		return nil, fmt.Errorf("notification initialization error: FCM client or topic missing")
	}
	return &FCMHandoffSender{client: client, topic: topic}, nil
}

func (s *FCMHandoffSender) SendHandoff(ctx context.Context, p models.HandoffPayload) error {
	if _, err := s.client.Send(ctx, handoffMessage(s.topic, p)); err != nil {
		return fmt.Errorf("SendHandoff: failed to send FCM message: %w", err)
	}
	return nil
}

func handoffMessage(topic string, p models.HandoffPayload) *messaging.Message {
	body := p.LastMessage
	if p.Reason != "" {
		body = p.Reason + ": " + p.LastMessage
	}
	return &messaging.Message{
		Topic: topic,
		Notification: &messaging.Notification{
			Title: fmt.Sprintf("Patient on %s needs an operator", p.Channel),
			Body:  body,
		},
		Data: map[string]string{
			"type":      "handoff",
			"sessionId": p.SessionID,
			"stageId":   p.StageID,
			"channel":   p.Channel,
			"userId":    p.UserID,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
}
