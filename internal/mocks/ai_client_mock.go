// Package mocks contains hand-written testify mocks for the service tests.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"adventure-server/internal/ai"
)

// Compile-time check to ensure MockAIClient implements ai.Client
var _ ai.Client = (*MockAIClient)(nil)

// MockAIClient is a testify mock for ai.Client.
type MockAIClient struct {
	mock.Mock
}

// NewMockAIClient creates a MockAIClient with expectations asserted on
// cleanup.
func NewMockAIClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAIClient {
	m := &MockAIClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAIClient) Complete(ctx context.Context, credential string, prompt string) (string, ai.UsageInfo, error) {
	args := m.Called(ctx, credential, prompt)
	return args.String(0), args.Get(1).(ai.UsageInfo), args.Error(2)
}
