// Package search publishes index-rebuild events. The full-text index
// itself is maintained by a separate consumer; this side only announces
// that a room's searchable projection went stale.
package search

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

type Notifier interface {
	// RoomChanged signals that the room (and its gig, if any) needs its
	// search document rebuilt.
	RoomChanged(ctx context.Context, roomExternalId string, gigId int) error
	Close() error
}

type roomChangedEvent struct {
	Room      string    `json:"room"`
	GigId     int       `json:"gig_id,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

type KafkaNotifier struct {
	log    *log.Logger
	writer *kafka.Writer
}

func NewKafkaNotifier(logger *log.Logger, brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		log: logger,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (n *KafkaNotifier) RoomChanged(ctx context.Context, roomExternalId string, gigId int) error {
	value, err := json.Marshal(roomChangedEvent{
		Room:      roomExternalId,
		GigId:     gigId,
		ChangedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(roomExternalId),
		Value: value,
	})
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// NoopNotifier is used when no Kafka brokers are configured.
type NoopNotifier struct{}

func (NoopNotifier) RoomChanged(context.Context, string, int) error { return nil }
func (NoopNotifier) Close() error                                   { return nil }
