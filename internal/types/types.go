package types

import (
	"time"
)

// RoomKind distinguishes a direct-message room from a room opened in
// reply to a gig.
type RoomKind string

const (
	KindDirect   RoomKind = "DIRECT"
	KindGigReply RoomKind = "GIG_REPLY"
)

type Account struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Gig struct {
	Id          int       `json:"id"`
	OwnerId     int       `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartDate   time.Time `json:"start_date,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Room is the serialized representation sent to clients. Title is the
// gig's title for GIG_REPLY rooms and the counterpart's username for
// DIRECT rooms. Members excludes the requesting account.
type Room struct {
	Id          int        `json:"id"`
	ExternalId  string     `json:"external_id"`
	Kind        RoomKind   `json:"type"`
	Title       string     `json:"title"`
	Gig         *Gig       `json:"gig,omitempty"`
	Creator     Account    `json:"user"`
	Members     []Account  `json:"members"`
	LastMessage string     `json:"last_message,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty"`
}

type Message struct {
	Id        int       `json:"id"`
	RoomId    string    `json:"room_id"`
	AuthorId  int       `json:"user_id"`
	Content   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
