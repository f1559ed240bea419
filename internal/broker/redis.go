package broker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrBrokerClosed = errors.New("broker is closed")

// RedisBroker implements the group layer on Redis pub/sub so fan-out
// reaches connections held by other server processes.
type RedisBroker struct {
	log *log.Logger
	rdb *redis.Client
}

func NewRedisBroker(logger *log.Logger, addr string) (*RedisBroker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &RedisBroker{log: logger, rdb: rdb}, nil
}

type redisSubscription struct {
	ps *redis.PubSub
	ch chan []byte
}

func (s *redisSubscription) C() <-chan []byte {
	return s.ch
}

func (s *redisSubscription) Close() error {
	return s.ps.Close()
}

func (b *RedisBroker) Subscribe(ctx context.Context, group string) (Subscription, error) {
	ps := b.rdb.Subscribe(ctx, group)

	// Wait for the subscription to be confirmed so a publish issued
	// right after Subscribe returns is not missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, err
	}

	sub := &redisSubscription{
		ps: ps,
		ch: make(chan []byte, subscriptionBuffer),
	}

	go func() {
		defer close(sub.ch)
		for msg := range ps.Channel() {
			select {
			case sub.ch <- []byte(msg.Payload):
			default:
				b.log.Printf("dropping payload for slow subscriber in group %q", group)
			}
		}
	}()

	return sub, nil
}

func (b *RedisBroker) Publish(ctx context.Context, group string, payload []byte) error {
	return b.rdb.Publish(ctx, group, payload).Err()
}

func (b *RedisBroker) Close() error {
	return b.rdb.Close()
}
