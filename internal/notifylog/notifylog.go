package notifylog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zsiskos/roadstartire/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrDuplicateDelivery = errors.New("mail for this event was already delivered to the recipient")

// Delivery is one mail sent for one event to one recipient.
type Delivery struct {
	EventID   string           `bson:"event_id" json:"event_id"`
	EventType domain.EventType `bson:"event_type" json:"event_type"`
	Recipient string           `bson:"recipient" json:"recipient"`
	Subject   string           `bson:"subject" json:"subject"`
	SentAt    time.Time        `bson:"sent_at" json:"sent_at"`
}

// DeliveryLog lets the notifier skip mails it already sent when Kafka
// redelivers an event.
type DeliveryLog interface {
	Delivered(ctx context.Context, eventID, recipient string) (bool, error)
	Record(ctx context.Context, d *Delivery) error
	ListByRecipient(ctx context.Context, recipient string, limit int64) ([]Delivery, error)
}

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(20)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

type MongoLog struct {
	collection *mongo.Collection
}

func NewMongoLog(db *mongo.Database) *MongoLog {
	return &MongoLog{collection: db.Collection("deliveries")}
}

func (m *MongoLog) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "recipient", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "sent_at", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "sent_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(365 * 24 * 60 * 60), // 1 year TTL
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (m *MongoLog) Delivered(ctx context.Context, eventID, recipient string) (bool, error) {
	n, err := m.collection.CountDocuments(ctx, bson.M{"event_id": eventID, "recipient": recipient})
	if err != nil {
		return false, fmt.Errorf("failed to look up delivery: %w", err)
	}
	return n > 0, nil
}

func (m *MongoLog) Record(ctx context.Context, d *Delivery) error {
	if d.SentAt.IsZero() {
		d.SentAt = time.Now().UTC()
	}
	_, err := m.collection.InsertOne(ctx, d)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateDelivery
	}
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

// ListByRecipient returns the newest deliveries first.
func (m *MongoLog) ListByRecipient(ctx context.Context, recipient string, limit int64) ([]Delivery, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sent_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := m.collection.Find(ctx, bson.M{"recipient": recipient}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer cur.Close(ctx)

	deliveries := []Delivery{}
	if err := cur.All(ctx, &deliveries); err != nil {
		return nil, fmt.Errorf("failed to decode deliveries: %w", err)
	}
	return deliveries, nil
}
