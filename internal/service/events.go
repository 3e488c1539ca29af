package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/zsiskos/roadstartire/internal/domain"
	"github.com/zsiskos/roadstartire/internal/repository"
)

// enqueue writes the event to the outbox; q must be the tx the change ran in.
func enqueue(ctx context.Context, q repository.Queries, aggregateID int64, eventType domain.EventType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	if err := q.InsertOutboxEvent(ctx, strconv.FormatInt(aggregateID, 10), eventType, data); err != nil {
		return fmt.Errorf("enqueue %s: %w", eventType, err)
	}
	return nil
}

func enqueueUserEvent(ctx context.Context, q repository.Queries, eventType domain.EventType, u *domain.User, at time.Time) error {
	return enqueue(ctx, q, u.ID, eventType, domain.NewUserEvent(uuid.NewString(), u, at))
}

func enqueueOrderEvent(ctx context.Context, q repository.Queries, eventType domain.EventType, cart *domain.Cart, owner *domain.User, at time.Time) error {
	return enqueue(ctx, q, cart.ID, eventType, domain.NewOrderEvent(uuid.NewString(), cart, owner, at))
}
