package server

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gigpig-app/gigchat/internal/broker"
	"github.com/gigpig-app/gigchat/internal/database"
	"github.com/gigpig-app/gigchat/internal/types"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client bridges one websocket connection and one broadcast group
// subscription. A connection never participates in more than one room.
type Client struct {
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *log.Logger
	account    types.Account
	room       *database.Room
	sub        broker.Subscription
	// readOnly marks a new-room notification channel: inbound frames
	// are discarded instead of being persisted.
	readOnly bool
	send     chan []byte
	stop     chan struct{}
	stopOnce sync.Once
}

func NewClient(account types.Account, room *database.Room, conn *websocket.Conn,
	sub broker.Subscription, cs *ChatServer, l *log.Logger, readOnly bool) *Client {
	return &Client{
		conn:       conn,
		chatServer: cs,
		log:        l,
		account:    account,
		room:       room,
		sub:        sub,
		readOnly:   readOnly,
		send:       make(chan []byte, 256),
		stop:       make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("write exiting")
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				return
			}

			if !c.sendMessage(websocket.TextMessage, payload) {
				return
			}
		case payload, ok := <-c.sub.C():
			if !ok {
				return
			}

			if !c.sendMessage(websocket.TextMessage, payload) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Println("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		if c.readOnly {
			continue
		}

		var frame InboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.log.Println("error parsing message:", err)
			continue
		}

		if strings.TrimSpace(frame.Message) == "" {
			continue
		}

		c.chatServer.handleMessage(c, frame.Message)
	}
}

// QueueMessage enqueues a payload for delivery on this connection
// only. Returns false when the client's buffer is full.
func (c *Client) QueueMessage(payload []byte) bool {
	select {
	case c.send <- payload:
	default:
		c.log.Println("failed to send message to client, channel is full")
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// cleanup runs on every read-pump exit regardless of cause. Group
// de-registration is mandatory teardown, not best-effort.
func (c *Client) cleanup() {
	if err := c.sub.Close(); err != nil {
		c.log.Println("unsubscribe:", err)
	}

	c.chatServer.deRegisterChan <- c
	c.stopClient()
}
