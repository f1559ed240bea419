package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/gigpig-app/gigchat/internal/broker"
	"github.com/gigpig-app/gigchat/internal/database"
	"github.com/gigpig-app/gigchat/internal/push"
	"github.com/gigpig-app/gigchat/internal/search"
	"github.com/gigpig-app/gigchat/internal/stats"
	"github.com/gigpig-app/gigchat/internal/types"
)

type ChatServer struct {
	log            *log.Logger
	db             database.ChatRepository
	broker         broker.Broker
	push           push.Dispatcher
	notifier       search.Notifier
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	stop           chan struct{}
	done           chan struct{}
}

// NewChatServer wires the connection handler to its collaborators.
// pushDispatcher may be nil when push notifications are disabled.
func NewChatServer(logger *log.Logger, db database.ChatRepository, bkr broker.Broker,
	pushDispatcher push.Dispatcher, notifier search.Notifier, su stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:            logger,
		db:             db,
		broker:         bkr,
		push:           pushDispatcher,
		notifier:       notifier,
		stats:          su,
		clients:        make(map[*Client]struct{}),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}

	for _, name := range []string{
		stats.ActiveConnections,
		stats.RoomsResolved,
		stats.RoomsCreated,
		stats.MessagesSent,
		stats.PushesDispatched,
	} {
		su.RegisterMetric(name)
	}

	return cs, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case client := <-cs.RegisterChan:
			cs.log.Printf("adding connection from %q", client.account.Username)
			cs.addClient(client)
		case client := <-cs.deRegisterChan:
			cs.log.Printf("removing connection from %q", client.account.Username)
			cs.removeClient(client)
		case <-cs.stop:
			close(cs.done)
			return
		}
	}
}

// SubscribeRoom joins a room's broadcast group.
func (cs *ChatServer) SubscribeRoom(ctx context.Context, externalId string) (broker.Subscription, error) {
	return cs.broker.Subscribe(ctx, broker.RoomGroup(externalId))
}

// SubscribeAccount joins an account's personal notification group.
func (cs *ChatServer) SubscribeAccount(ctx context.Context, accountId int) (broker.Subscription, error) {
	return cs.broker.Subscribe(ctx, broker.AccountGroup(accountId))
}

func (cs *ChatServer) RegisterClient(c *Client) {
	cs.RegisterChan <- c
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
	cs.stats.Incr(stats.ActiveConnections)
}

func (cs *ChatServer) removeClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	if _, ok := cs.clients[c]; !ok {
		return
	}

	delete(cs.clients, c)
	cs.stats.Decr(stats.ActiveConnections)
}

// handleMessage persists an inbound text frame, fans it out to the
// room's broadcast group and notifies the room's other members. Runs
// on the sending client's read goroutine so a single author's messages
// in one room keep their order.
func (cs *ChatServer) handleMessage(c *Client, content string) {
	msg, err := cs.db.CreateMessage(database.CreateMessageParams{
		RoomId:   c.room.Id,
		AuthorId: c.account.Id,
		Content:  content,
	})
	if err != nil {
		cs.log.Println("create message:", err)
		return
	}

	payload, err := json.Marshal(ChatFrame{
		Room:    c.room.ExternalId,
		User:    UserRef{Id: c.account.Id, Username: c.account.Username},
		Id:      msg.Id,
		Message: content,
	})
	if err != nil {
		cs.log.Println("marshal chat frame:", err)
		return
	}

	if err := cs.broker.Publish(context.Background(), broker.RoomGroup(c.room.ExternalId), payload); err != nil {
		cs.log.Println("publish message:", err)
		return
	}
	cs.stats.Incr(stats.MessagesSent)

	cs.notifyMembers(c.room, c.account, content)

	go func() {
		if err := cs.notifier.RoomChanged(context.Background(), c.room.ExternalId, c.room.GigId); err != nil {
			cs.log.Println("search notify:", err)
		}
	}()
}

// notifyMembers marks the room unread for every other active member
// and, when push is enabled, dispatches a notification to each.
func (cs *ChatServer) notifyMembers(room *database.Room, author types.Account, content string) {
	for _, member := range room.Members {
		if member.Id == author.Id || !member.Active {
			continue
		}

		if err := cs.db.AddUnreadRoom(member.Id, room.Id); err != nil {
			cs.log.Printf("mark unread for account %d: %v", member.Id, err)
			continue
		}

		if cs.push == nil {
			continue
		}

		serialized, err := SerializeRoom(cs.db, room, member.Id)
		if err != nil {
			cs.log.Printf("serialize room for push: %v", err)
			continue
		}

		title := fmt.Sprintf("Message from %s", author.Username)
		data := map[string]any{"type": "room", "serialized_object": serialized}
		go func(accountId int) {
			if err := cs.push.Send(context.Background(), accountId, title, content, data); err != nil {
				cs.log.Printf("push to account %d: %v", accountId, err)
				return
			}
			cs.stats.Incr(stats.PushesDispatched)
		}(member.Id)
	}
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("received shutdown signal")
	cs.clientsLock.Lock()
	for c := range cs.clients {
		c.stopClient()
	}
	cs.clientsLock.Unlock()

	close(cs.stop)

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
