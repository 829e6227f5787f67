package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"firebase.google.com/go/v4/messaging"
	"github.com/Shahir-collab/bus-routes-website/pkg/config"
	"github.com/Shahir-collab/bus-routes-website/pkg/ctdf"
	"github.com/Shahir-collab/bus-routes-website/pkg/identity"
	"github.com/rs/zerolog/log"
)

// Sender is the part of the FCM client used for pushes.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type PushManager struct {
	Sender Sender
	Topic  string
}

func (m *PushManager) Setup(ctx context.Context, cfg *config.Config) error {
	app, err := identity.NewFirebaseApp(ctx, cfg.Firebase)
	if err != nil {
		return err
	}

	fcmClient, err := app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("notify: messaging client: %w", err)
	}

	m.Sender = fcmClient
	m.Topic = cfg.PushTopic

	return nil
}

func (m *PushManager) SendAlert(ctx context.Context, alert *ctdf.Alert) error {
	message := alertMessage(alert, m.Topic)

	id, err := m.Sender.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("notify: send alert %d: %w", alert.ID, err)
	}

	log.Info().Str("topic", m.Topic).Int("alert", alert.ID).Str("message", id).Msg("Sent Push Notification")

	return nil
}

func alertMessage(alert *ctdf.Alert, topic string) *messaging.Message {
	title := alertTitle(alert.AlertType)
	if subject := alert.Subject(); subject != "" {
		title = fmt.Sprintf("%s: %s", subject, title)
	}

	return &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  alert.Message,
		},
		Data: map[string]string{
			"alertId":   strconv.Itoa(alert.ID),
			"alertType": string(alert.AlertType),
		},
		Topic: topic,
	}
}

func alertTitle(alertType ctdf.AlertType) string {
	if alertType == "" {
		return "Alert"
	}

	return strings.ToUpper(string(alertType[:1])) + string(alertType[1:])
}
