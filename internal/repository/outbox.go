package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/zsiskos/roadstartire/internal/domain"
)

type OutboxEvent struct {
	ID          int64
	AggregateId string
	EventType   domain.EventType
	Payload     []byte
	CreatedAt   time.Time
}

// InsertOutboxEvent must run in the same tx as the change it announces.
func (q *queries) InsertOutboxEvent(ctx context.Context, aggregateID string, eventType domain.EventType, payload []byte) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		aggregateID, string(eventType), payload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (q *queries) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		 FROM outbox_events WHERE processed_at IS NULL
		 ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var (
			e         OutboxEvent
			eventType string
		)
		if err := rows.Scan(&e.ID, &e.AggregateId, &eventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event row: %w", err)
		}
		e.EventType = domain.EventType(eventType)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (q *queries) MarkEventAsProcessed(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed_at = NOW() WHERE id = $1 AND processed_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return expectOneRow(res, ErrEventNotFound)
}
