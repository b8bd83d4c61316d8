package events

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ridepool-backend/internal/domain"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMPublisher sends every event as a data message to a per-type topic,
// e.g. "ridepool-ride.created" becomes "ridepool-ride-created".
type FCMPublisher struct {
	client      messageSender
	topicPrefix string
}

func NewFCMPublisher(ctx context.Context, credentialsFile, topicPrefix string) (*FCMPublisher, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}
	return &FCMPublisher{client: client, topicPrefix: topicPrefix}, nil
}

func (f *FCMPublisher) Name() string { return "fcm" }

func (f *FCMPublisher) Publish(ctx context.Context, evt domain.Event) error {
	_, err := f.client.Send(ctx, f.buildMessage(evt))
	return err
}

func (f *FCMPublisher) buildMessage(evt domain.Event) *messaging.Message {
	return &messaging.Message{
		Topic: f.topic(evt.Type),
		Data: map[string]string{
			"event_id":    evt.ID,
			"type":        string(evt.Type),
			"entity_id":   strconv.Itoa(int(evt.EntityID)),
			"state":       evt.State,
			"occurred_at": evt.OccurredAt.Format(time.RFC3339),
		},
	}
}

// topic maps the event type onto the FCM topic alphabet [a-zA-Z0-9-_.~%].
func (f *FCMPublisher) topic(t domain.EventType) string {
	name := strings.ReplaceAll(string(t), ".", "-")
	if f.topicPrefix == "" {
		return name
	}
	return f.topicPrefix + "-" + name
}
