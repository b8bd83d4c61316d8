// Package events delivers domain events to the notification collaborators.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/logger"
	"ridepool-backend/internal/metrics"

	"github.com/google/uuid"
)

type Publisher interface {
	Publish(ctx context.Context, evt domain.Event) error
}

// New stamps an event with a fresh id and the current time.
func New(t domain.EventType, entityID int32, state string) domain.Event {
	return domain.Event{
		ID:         uuid.NewString(),
		Type:       t,
		EntityID:   entityID,
		State:      state,
		OccurredAt: time.Now().UTC(),
	}
}

// NamedPublisher is a Publisher that reports which sink it is, for logs and metrics.
type NamedPublisher interface {
	Publisher
	Name() string
}

// Multi fans an event out to every sink. A failing sink does not stop the others.
type Multi struct {
	sinks []NamedPublisher
}

func NewMulti(sinks ...NamedPublisher) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Publish(ctx context.Context, evt domain.Event) error {
	var errs []error
	for _, sink := range m.sinks {
		err := sink.Publish(ctx, evt)
		logger.EventPublished(sink.Name(), string(evt.Type), evt.EntityID, err)
		if err != nil {
			metrics.EventsPublished.WithLabelValues(sink.Name(), "error").Inc()
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		metrics.EventsPublished.WithLabelValues(sink.Name(), "ok").Inc()
	}
	return errors.Join(errs...)
}

// LogPublisher writes every event to the structured log.
type LogPublisher struct{}

func (LogPublisher) Name() string { return "log" }

func (LogPublisher) Publish(ctx context.Context, evt domain.Event) error {
	logger.FromContext(ctx).InfoContext(ctx, "Domain event", "event_id", evt.ID, "type", evt.Type, "entity_id", evt.EntityID, "state", evt.State)
	return nil
}
