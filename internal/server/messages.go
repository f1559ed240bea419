package server

import (
	"github.com/gigpig-app/gigchat/internal/types"
)

// UserRef is the author's public identity carried on broadcast frames.
type UserRef struct {
	Id       int    `json:"id"`
	Username string `json:"username"`
}

// InboundFrame is what a client sends over a chat connection.
type InboundFrame struct {
	Message string `json:"message"`
}

// ChatFrame is fanned out to every connection subscribed to a room
// when a message is created.
type ChatFrame struct {
	Room    string  `json:"room"`
	User    UserRef `json:"user"`
	Id      int     `json:"id"`
	Message string  `json:"message"`
}

// NewRoomFrame is sent once on a new-room connection so the client
// learns the identifier of the room it just resolved.
type NewRoomFrame struct {
	Room    types.Room `json:"room"`
	User    UserRef    `json:"user"`
	Message string     `json:"message"`
}
