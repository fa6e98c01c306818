package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docanalyser/internal/port"
)

// MockChatCompleter is a mock implementation of port.ChatCompleter.
type MockChatCompleter struct {
	mock.Mock
}

func (m *MockChatCompleter) CompleteJSON(ctx context.Context, req port.ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockChatCompleter) Model() string {
	args := m.Called()
	return args.String(0)
}

// MockKeyUsageChecker is a mock implementation of port.KeyUsageChecker.
type MockKeyUsageChecker struct {
	mock.Mock
}

func (m *MockKeyUsageChecker) KeyUsage(ctx context.Context) (map[string]any, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}
