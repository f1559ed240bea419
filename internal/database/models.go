package database

import "time"

const (
	StateActive      = "active"
	StateDeactivated = "deactivated"
	StateDeleted     = "deleted"
)

type Account struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Gig struct {
	Id          int
	OwnerId     int
	Title       string
	Description string
	Location    string
	Active      bool
	StartDate   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Room struct {
	Id         int
	ExternalId string
	CreatorId  int
	Kind       string
	GigId      int
	State      string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Members []Account

	// LastMessage fields are populated by the room listing query only.
	LastMessage   string
	LastMessageAt time.Time
}

type Message struct {
	Id        int
	RoomId    int
	AuthorId  int
	Content   string
	State     string
	CreatedAt time.Time
}

type NotificationToken struct {
	Id        int
	AccountId int
	Token     string
	Active    bool
	CreatedAt time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type CreateGigParams struct {
	OwnerId     int
	Title       string
	Description string
	Location    string
	StartDate   time.Time
}

type CreateRoomParams struct {
	ExternalId string
	CreatorId  int
	Kind       string
	GigId      int
	MemberIds  []int
}

type CreateMessageParams struct {
	RoomId   int
	AuthorId int
	Content  string
}
