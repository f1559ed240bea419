package database

type ChatRepository interface {
	Ping() error

	CreateAccount(params CreateAccountParams) (Account, error)
	GetAccountById(accountId int) (Account, error)
	GetAccountByEmail(email string) (Account, error)

	CreateGig(params CreateGigParams) (Gig, error)
	GetGigById(gigId int) (Gig, error)
	ListGigs(ownerId int) ([]Gig, error)

	CreateRoom(params CreateRoomParams) (*Room, error)
	GetRoomByExternalId(externalId string) (*Room, error)
	GetDirectRoom(accountId, counterpartId int) (*Room, error)
	GetGigReplyRoom(creatorId, gigId int) (*Room, error)
	ListRoomsForAccount(accountId, gigId int) ([]Room, error)
	IsRoomMember(roomId, accountId int) (bool, error)
	DeactivateRoom(roomId int) error

	CreateMessage(params CreateMessageParams) (Message, error)
	ListMessages(roomId, before, limit int) ([]Message, error)
	GetLastMessage(roomId int) (Message, error)
	DeactivateMessage(messageId, authorId int) error

	AddUnreadRoom(accountId, roomId int) error
	TakeUnreadRooms(accountId int) ([]string, error)

	CreateNotificationToken(accountId int, token string) (NotificationToken, error)
	ListActiveNotificationTokens(accountId int) ([]NotificationToken, error)
	DeactivateNotificationToken(token string) error
}
