package push

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Send(ctx context.Context, accountId int, title, body string, data map[string]any) error {
	args := m.Called(ctx, accountId, title, body, data)
	return args.Error(0)
}
