package database

import (
	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChatRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	args := m.Called(params)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockChatRepository) GetAccountById(accountId int) (Account, error) {
	args := m.Called(accountId)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockChatRepository) GetAccountByEmail(email string) (Account, error) {
	args := m.Called(email)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockChatRepository) CreateGig(params CreateGigParams) (Gig, error) {
	args := m.Called(params)
	return args.Get(0).(Gig), args.Error(1)
}
func (m *MockChatRepository) GetGigById(gigId int) (Gig, error) {
	args := m.Called(gigId)
	return args.Get(0).(Gig), args.Error(1)
}
func (m *MockChatRepository) ListGigs(ownerId int) ([]Gig, error) {
	args := m.Called(ownerId)
	return args.Get(0).([]Gig), args.Error(1)
}
func (m *MockChatRepository) CreateRoom(params CreateRoomParams) (*Room, error) {
	args := m.Called(params)
	if room, ok := args.Get(0).(*Room); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) GetRoomByExternalId(externalId string) (*Room, error) {
	args := m.Called(externalId)
	if room, ok := args.Get(0).(*Room); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) GetDirectRoom(accountId, counterpartId int) (*Room, error) {
	args := m.Called(accountId, counterpartId)
	if room, ok := args.Get(0).(*Room); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) GetGigReplyRoom(creatorId, gigId int) (*Room, error) {
	args := m.Called(creatorId, gigId)
	if room, ok := args.Get(0).(*Room); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) ListRoomsForAccount(accountId, gigId int) ([]Room, error) {
	args := m.Called(accountId, gigId)
	return args.Get(0).([]Room), args.Error(1)
}
func (m *MockChatRepository) IsRoomMember(roomId, accountId int) (bool, error) {
	args := m.Called(roomId, accountId)
	return args.Bool(0), args.Error(1)
}
func (m *MockChatRepository) DeactivateRoom(roomId int) error {
	args := m.Called(roomId)
	return args.Error(0)
}
func (m *MockChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) ListMessages(roomId, before, limit int) ([]Message, error) {
	args := m.Called(roomId, before, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockChatRepository) GetLastMessage(roomId int) (Message, error) {
	args := m.Called(roomId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) DeactivateMessage(messageId, authorId int) error {
	args := m.Called(messageId, authorId)
	return args.Error(0)
}
func (m *MockChatRepository) AddUnreadRoom(accountId, roomId int) error {
	args := m.Called(accountId, roomId)
	return args.Error(0)
}
func (m *MockChatRepository) TakeUnreadRooms(accountId int) ([]string, error) {
	args := m.Called(accountId)
	return args.Get(0).([]string), args.Error(1)
}
func (m *MockChatRepository) CreateNotificationToken(accountId int, token string) (NotificationToken, error) {
	args := m.Called(accountId, token)
	return args.Get(0).(NotificationToken), args.Error(1)
}
func (m *MockChatRepository) ListActiveNotificationTokens(accountId int) ([]NotificationToken, error) {
	args := m.Called(accountId)
	return args.Get(0).([]NotificationToken), args.Error(1)
}
func (m *MockChatRepository) DeactivateNotificationToken(token string) error {
	args := m.Called(token)
	return args.Error(0)
}
