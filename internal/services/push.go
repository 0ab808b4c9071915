package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"transporter-dashboard/internal/notifications"
)

// pushTimeout bounds one FCM send from a notification subscriber
const pushTimeout = 10 * time.Second

// Messenger sends one FCM message; *messaging.Client satisfies it
type Messenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushService forwards dashboard notifications to a Firebase Cloud Messaging topic
type PushService struct {
	client Messenger
	topic  string
}

// NewPushService creates a push service from a credentials file
func NewPushService(credentialsFile, topic string) (*PushService, error) {
	return newPushService(option.WithCredentialsFile(credentialsFile), topic)
}

// NewPushServiceFromBase64 creates a push service from base64-encoded credentials
// This is useful for cloud deployments where you can't upload files easily
func NewPushServiceFromBase64(credentialsBase64, topic string) (*PushService, error) {
	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}
	return newPushService(option.WithCredentialsJSON(credentialsJSON), topic)
}

func newPushService(opt option.ClientOption, topic string) (*PushService, error) {
	ctx := context.Background()

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return NewPushServiceWithClient(client, topic), nil
}

// NewPushServiceWithClient wraps an existing messenger
func NewPushServiceWithClient(client Messenger, topic string) *PushService {
	return &PushService{client: client, topic: topic}
}

// Topic returns the FCM topic managers subscribe to
func (s *PushService) Topic() string { return s.topic }

// SendNotification publishes n to the topic
func (s *PushService) SendNotification(ctx context.Context, n notifications.Notification) error {
	title := n.Title
	if title == "" {
		title = "Transport Dashboard"
	}

	message := &messaging.Message{
		Topic: s.topic,
		Notification: &messaging.Notification{
			Title: title,
			Body:  n.Message,
		},
		Data: map[string]string{
			"type":            "dashboard_notification",
			"notification_id": n.ID,
			"severity":        string(n.Type),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}

	response, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending FCM message: %w", err)
	}

	log.Printf("✅ FCM notification sent successfully: %s", response)
	return nil
}

// Subscriber forwards notifications marked for push. Sends run in the background.
func (s *PushService) Subscriber() notifications.Subscriber {
	return func(n notifications.Notification) {
		if !n.Push {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
			defer cancel()
			if err := s.SendNotification(ctx, n); err != nil {
				log.Printf("⚠️  Failed to push notification %s: %v", n.ID, err)
			}
		}()
	}
}
