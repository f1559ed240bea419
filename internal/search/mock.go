package search

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) RoomChanged(ctx context.Context, roomExternalId string, gigId int) error {
	args := m.Called(ctx, roomExternalId, gigId)
	return args.Error(0)
}

func (m *MockNotifier) Close() error {
	args := m.Called()
	return args.Error(0)
}
