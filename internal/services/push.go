package services

import (
	"context"
	"fmt"

	"campusoul/internal/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// PushService sends best-effort FCM notifications to users who
// registered a device token. Delivery failures are logged, never
// surfaced to the triggering request.
type PushService struct {
	client *messaging.Client
}

// NewPushService returns a disabled service (nil client) when no
// Firebase project is configured.
func NewPushService(ctx context.Context, cfg *config.Config) (*PushService, error) {
	if cfg.FirebaseProjectID == "" {
		return &PushService{}, nil
	}

	var opts []option.ClientOption
	if cfg.FirebaseCredentialFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize FCM client: %w", err)
	}

	return &PushService{client: client}, nil
}

// Enabled reports whether FCM delivery is configured.
func (s *PushService) Enabled() bool {
	return s.client != nil
}

// Notify sends a notification to the given device token.
func (s *PushService) Notify(ctx context.Context, deviceToken, title, body string, data map[string]string) {
	if s.client == nil || deviceToken == "" {
		return
	}

	_, err := s.client.Send(ctx, &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
	if err != nil {
		logrus.WithError(err).Warn("FCM delivery failed")
	}
}
