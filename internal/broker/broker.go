// Package broker provides the broadcast group layer: a named
// publish/subscribe channel that fans a published payload out to every
// connection currently registered under that name.
package broker

import (
	"context"
	"fmt"
)

type Broker interface {
	// Subscribe registers a new subscription under group. The caller
	// must Close the subscription when done; that is the unregister.
	Subscribe(ctx context.Context, group string) (Subscription, error)
	Publish(ctx context.Context, group string, payload []byte) error
	Close() error
}

type Subscription interface {
	// C delivers payloads published to the subscription's group. It is
	// closed when the subscription is closed.
	C() <-chan []byte
	Close() error
}

// RoomGroup is the group key for a room's broadcast channel.
func RoomGroup(externalId string) string {
	return "room." + externalId
}

// AccountGroup is the group key for an account's notification channel.
func AccountGroup(accountId int) string {
	return fmt.Sprintf("account.%d", accountId)
}
