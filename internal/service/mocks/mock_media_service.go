package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mediavault/internal/model"
	"mediavault/internal/service"
)

type MockMediaService struct {
	mock.Mock
}

var _ service.MediaService = (*MockMediaService)(nil)

func (m *MockMediaService) Create(ctx context.Context, in service.CreateMediaInput) (*model.Media, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Media), args.Error(1)
}

func (m *MockMediaService) Get(ctx context.Context, kind model.MediaKind, id int64) (*model.Media, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Media), args.Error(1)
}

func (m *MockMediaService) List(ctx context.Context, kind model.MediaKind, in service.ListMediaInput) (*service.MediaListResult, error) {
	args := m.Called(ctx, kind, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MediaListResult), args.Error(1)
}

func (m *MockMediaService) Update(ctx context.Context, in service.UpdateMediaInput) (*model.Media, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Media), args.Error(1)
}

func (m *MockMediaService) Delete(ctx context.Context, kind model.MediaKind, id, userID int64) error {
	args := m.Called(ctx, kind, id, userID)
	return args.Error(0)
}
