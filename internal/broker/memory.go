package broker

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

const subscriptionBuffer = 256

// MemoryBroker is an in-process group registry. It backs tests and
// single-node deployments; fan-out does not cross process boundaries.
type MemoryBroker struct {
	log    *log.Logger
	mu     sync.RWMutex
	groups map[string]map[string]*memorySubscription
	closed bool
}

func NewMemoryBroker(logger *log.Logger) *MemoryBroker {
	return &MemoryBroker{
		log:    logger,
		groups: make(map[string]map[string]*memorySubscription),
	}
}

type memorySubscription struct {
	id    string
	group string
	b     *MemoryBroker
	ch    chan []byte
	once  sync.Once
}

func (s *memorySubscription) C() <-chan []byte {
	return s.ch
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.b.unsubscribe(s)
		close(s.ch)
	})
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, group string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}

	sub := &memorySubscription{
		id:    uuid.NewString(),
		group: group,
		b:     b,
		ch:    make(chan []byte, subscriptionBuffer),
	}

	if b.groups[group] == nil {
		b.groups[group] = make(map[string]*memorySubscription)
	}
	b.groups[group][sub.id] = sub

	return sub, nil
}

func (b *MemoryBroker) unsubscribe(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.groups[sub.group]; ok {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(b.groups, sub.group)
		}
	}
}

func (b *MemoryBroker) Publish(_ context.Context, group string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBrokerClosed
	}

	for _, sub := range b.groups[group] {
		select {
		case sub.ch <- payload:
		default:
			b.log.Printf("dropping payload for slow subscriber in group %q", group)
		}
	}

	return nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	subs := make([]*memorySubscription, 0)
	for _, group := range b.groups {
		for _, sub := range group {
			subs = append(subs, sub)
		}
	}
	b.closed = true
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}

	return nil
}
