package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mediavault/internal/model"
	"mediavault/internal/repository"
)

type MockMediaRepository struct {
	mock.Mock
}

var _ repository.MediaRepository = (*MockMediaRepository)(nil)

func (m *MockMediaRepository) Create(ctx context.Context, md *model.Media) (*model.Media, error) {
	args := m.Called(ctx, md)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Media), args.Error(1)
}

func (m *MockMediaRepository) FindByID(ctx context.Context, kind model.MediaKind, id int64) (*model.Media, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Media), args.Error(1)
}

func (m *MockMediaRepository) List(ctx context.Context, kind model.MediaKind, q repository.MediaQuery) (*repository.PageResult[model.Media], error) {
	args := m.Called(ctx, kind, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Media]), args.Error(1)
}

func (m *MockMediaRepository) Update(ctx context.Context, md *model.Media, prevFile *string) (*model.Media, error) {
	args := m.Called(ctx, md, prevFile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Media), args.Error(1)
}

func (m *MockMediaRepository) Delete(ctx context.Context, kind model.MediaKind, id int64) error {
	args := m.Called(ctx, kind, id)
	return args.Error(0)
}

func (m *MockMediaRepository) StoredFiles(ctx context.Context, kind model.MediaKind) (map[string]struct{}, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]struct{}), args.Error(1)
}
