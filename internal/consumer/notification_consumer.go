package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/zsiskos/roadstartire/internal/domain"
	"github.com/zsiskos/roadstartire/internal/mailer"
	"github.com/zsiskos/roadstartire/internal/notifylog"
)

const GroupID = "storefront-notifier"

const defaultRetryDelay = 5 * time.Second

// MessageReader is the part of *kafka.Reader the consumer uses. Offsets are
// committed explicitly once an event's mails are out.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type NotificationConsumer struct {
	reader     MessageReader
	mailer     Sender
	deliveries notifylog.DeliveryLog
	renderer   *Renderer
	staff      []string
	retryDelay time.Duration
}

func NewNotificationConsumer(
	mail Sender,
	deliveries notifylog.DeliveryLog,
	renderer *Renderer,
	staff []string,
	topic string,
	brokers ...string,
) *NotificationConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &NotificationConsumer{
		reader:     reader,
		mailer:     mail,
		deliveries: deliveries,
		renderer:   renderer,
		staff:      staff,
		retryDelay: defaultRetryDelay,
	}
}

func (c *NotificationConsumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *NotificationConsumer) Close() {
	if err := c.reader.Close(); err != nil {
		log.Printf("error closing kafka reader: %v", err)
	}
}

// processMessage handles one event and commits its offset. While a mail
// cannot be sent the same event is retried, so the partition does not move
// past it. On shutdown the offset stays uncommitted and the event comes back
// after restart; the delivery log skips recipients already mailed.
func (c *NotificationConsumer) processMessage(ctx context.Context) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("error reading message: %v", err)
		return
	}

	for {
		err := c.handle(ctx, m)
		if err == nil {
			break
		}
		log.Printf("message at offset %v not fully delivered, retrying in %v: %v", m.Offset, c.retryDelay, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.retryDelay):
		}
	}

	if err := c.reader.CommitMessages(ctx, m); err != nil {
		log.Printf("failed to commit offset %v: %v", m.Offset, err)
	}
}

// handle returns an error only when a mail could not be delivered. Messages
// that can never be processed are logged and treated as done.
func (c *NotificationConsumer) handle(ctx context.Context, m kafka.Message) error {
	eventType := eventTypeOf(m)
	if eventType == "" {
		log.Printf("message at offset %v has no event_type header, skipping", m.Offset)
		return nil
	}

	// user events decode into the same shape, without the order fields
	var event domain.OrderEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		log.Printf("error parsing %v message: %v", eventType, err)
		return nil
	}
	if event.EventID == "" {
		log.Printf("%v message without event_id, skipping", eventType)
		return nil
	}

	mails, err := c.renderer.Render(eventType, event)
	if err != nil {
		log.Printf("failed to render mails for event %v: %v", event.EventID, err)
		return nil
	}

	var failed error
	for _, mail := range mails {
		recipients := []string{event.Email}
		if mail.ToStaff {
			recipients = c.staff
		}
		for _, to := range recipients {
			if to == "" {
				continue
			}
			if err := c.deliver(ctx, event.EventID, eventType, to, mail); err != nil {
				failed = errors.Join(failed, err)
			}
		}
	}
	return failed
}

func (c *NotificationConsumer) deliver(ctx context.Context, eventID string, eventType domain.EventType, to string, mail Mail) error {
	sent, err := c.deliveries.Delivered(ctx, eventID, to)
	if err != nil {
		return fmt.Errorf("check delivery of event %v to %v: %w", eventID, to, err)
	}
	if sent {
		log.Printf("event %v already delivered to %v, skipping", eventID, to)
		return nil
	}

	err = c.mailer.Send(ctx, mailer.Message{To: []string{to}, Subject: mail.Subject, Body: mail.Body})
	if err != nil {
		return fmt.Errorf("send %v mail for event %v to %v: %w", eventType, eventID, to, err)
	}

	// the mail is out; a failed record at worst repeats it on redelivery
	err = c.deliveries.Record(ctx, &notifylog.Delivery{
		EventID:   eventID,
		EventType: eventType,
		Recipient: to,
		Subject:   mail.Subject,
	})
	if err != nil && !errors.Is(err, notifylog.ErrDuplicateDelivery) {
		log.Printf("failed to record delivery of event %v to %v: %v", eventID, to, err)
	}
	return nil
}

func eventTypeOf(m kafka.Message) domain.EventType {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return domain.EventType(h.Value)
		}
	}
	return ""
}
