package mocks

import (
	"context"

	"github.com/gamassss/click-tracker/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockClickTracker struct {
	mock.Mock
}

func (m *MockClickTracker) TrackClick(ctx context.Context, req *domain.TrackClickRequest, meta domain.RequestMeta) (*domain.TrackClickResponse, error) {
	args := m.Called(ctx, req, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrackClickResponse), args.Error(1)
}

type MockLinkInvalidator struct {
	mock.Mock
}

func (m *MockLinkInvalidator) DeleteLink(ctx context.Context, linkDomain, key string) error {
	args := m.Called(ctx, linkDomain, key)
	return args.Error(0)
}
