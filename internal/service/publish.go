package service

import (
	"context"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/events"
	"ridepool-backend/internal/logger"
)

// publish hands evt to the collaborators. Delivery problems never fail the caller.
func publish(ctx context.Context, pub events.Publisher, t domain.EventType, entityID int32, state string) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, events.New(t, entityID, state)); err != nil {
		logger.FromContext(ctx).WarnContext(ctx, "Event delivery incomplete", "type", t, "entity_id", entityID, "error", err)
	}
}
