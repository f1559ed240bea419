package broker

import (
	"context"
	"testing"
	"time"

	"github.com/gigpig-app/gigchat/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMemoryBroker_PublishSubscribe(t *testing.T) {
	b := NewMemoryBroker(testutil.TestLogger(t))
	defer b.Close()

	sub, err := b.Subscribe(context.Background(), RoomGroup("testroom"))
	assert.NoError(t, err, "expected no error subscribing")

	err = b.Publish(context.Background(), RoomGroup("testroom"), []byte("hello"))
	assert.NoError(t, err, "expected no error publishing")

	select {
	case payload := <-sub.C():
		assert.Equal(t, []byte("hello"), payload, "expected published payload to be delivered")
	case <-time.After(time.Second):
		t.Error("expected payload to be delivered to subscriber")
	}
}

func TestMemoryBroker_FanOut(t *testing.T) {
	b := NewMemoryBroker(testutil.TestLogger(t))
	defer b.Close()

	sub1, err := b.Subscribe(context.Background(), RoomGroup("testroom"))
	assert.NoError(t, err)
	sub2, err := b.Subscribe(context.Background(), RoomGroup("testroom"))
	assert.NoError(t, err)
	other, err := b.Subscribe(context.Background(), RoomGroup("otherroom"))
	assert.NoError(t, err)

	err = b.Publish(context.Background(), RoomGroup("testroom"), []byte("hello"))
	assert.NoError(t, err)

	for _, sub := range []Subscription{sub1, sub2} {
		select {
		case payload := <-sub.C():
			assert.Equal(t, []byte("hello"), payload, "expected payload on every group subscriber")
		case <-time.After(time.Second):
			t.Error("expected payload to be delivered to subscriber")
		}
	}

	select {
	case <-other.C():
		t.Error("expected no delivery to a different group")
	default:
	}
}

func TestMemoryBroker_UnsubscribeStopsDelivery(t *testing.T) {
	b := NewMemoryBroker(testutil.TestLogger(t))
	defer b.Close()

	sub, err := b.Subscribe(context.Background(), RoomGroup("testroom"))
	assert.NoError(t, err)

	err = sub.Close()
	assert.NoError(t, err, "expected no error closing subscription")

	err = b.Publish(context.Background(), RoomGroup("testroom"), []byte("hello"))
	assert.NoError(t, err, "expected publish to succeed with no subscribers")

	// channel is closed on unsubscribe, so a receive yields the zero value
	payload, ok := <-sub.C()
	assert.False(t, ok, "expected subscription channel to be closed")
	assert.Nil(t, payload, "expected no payload after unsubscribe")
}

func TestMemoryBroker_CloseIsIdempotent(t *testing.T) {
	b := NewMemoryBroker(testutil.TestLogger(t))

	sub, err := b.Subscribe(context.Background(), RoomGroup("testroom"))
	assert.NoError(t, err)

	assert.NoError(t, sub.Close())
	assert.NoError(t, sub.Close(), "expected double close to be safe")
}

func TestMemoryBroker_Closed(t *testing.T) {
	b := NewMemoryBroker(testutil.TestLogger(t))

	sub, err := b.Subscribe(context.Background(), RoomGroup("testroom"))
	assert.NoError(t, err)

	assert.NoError(t, b.Close())

	_, ok := <-sub.C()
	assert.False(t, ok, "expected subscription channel to be closed with broker")

	_, err = b.Subscribe(context.Background(), RoomGroup("testroom"))
	assert.ErrorIs(t, err, ErrBrokerClosed, "expected subscribe on closed broker to fail")

	err = b.Publish(context.Background(), RoomGroup("testroom"), []byte("hello"))
	assert.ErrorIs(t, err, ErrBrokerClosed, "expected publish on closed broker to fail")
}

func TestGroupKeys(t *testing.T) {
	assert.Equal(t, "room.abc123", RoomGroup("abc123"))
	assert.Equal(t, "account.42", AccountGroup(42))
}
