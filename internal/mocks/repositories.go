package mocks

import (
	"context"

	"github.com/gamassss/click-tracker/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) GetByDomainKey(ctx context.Context, linkDomain, key string) (*domain.Link, error) {
	args := m.Called(ctx, linkDomain, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

type MockWorkspaceRepository struct {
	mock.Mock
}

func (m *MockWorkspaceRepository) GetAllowedHostnames(ctx context.Context, workspaceID string) (*domain.Workspace, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workspace), args.Error(1)
}

type MockClickSink struct {
	mock.Mock
}

func (m *MockClickSink) Record(ctx context.Context, click *domain.ClickEvent) error {
	args := m.Called(ctx, click)
	return args.Error(0)
}
