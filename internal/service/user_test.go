package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mediavault/internal/auth"
	"mediavault/internal/config"
	"mediavault/internal/model"
	"mediavault/internal/repository"
	repoMocks "mediavault/internal/repository/mocks"
)

func testTokens() *auth.Manager {
	return auth.NewManager(config.AuthConfig{
		AccessSecret:  "a",
		RefreshSecret: "r",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
	})
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		in         RegisterInput
		setupMocks func(mRepo *repoMocks.MockUserRepository)
		wantErr    error
		wantErrMsg string
	}{
		{
			name: "happy path",
			in:   RegisterInput{Name: "alice", Email: " Alice@Example.com ", Password: "pw1"},
			setupMocks: func(mRepo *repoMocks.MockUserRepository) {
				mRepo.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
					return u.Email == "alice@example.com" &&
						u.Role == model.RoleUser &&
						u.PasswordHash != "pw1" &&
						auth.CheckPassword(u.PasswordHash, "pw1")
				})).Return(&model.User{ID: 1, Name: "alice", Email: "alice@example.com"}, nil)
			},
		},
		{
			name:       "short name",
			in:         RegisterInput{Name: "al", Email: "a@x.io", Password: "pw1"},
			setupMocks: func(*repoMocks.MockUserRepository) {},
			wantErrMsg: "name must be at least 3 characters",
		},
		{
			name:       "bad email",
			in:         RegisterInput{Name: "alice", Email: "nope", Password: "pw1"},
			setupMocks: func(*repoMocks.MockUserRepository) {},
			wantErrMsg: "email must be a valid email address",
		},
		{
			name:       "short password",
			in:         RegisterInput{Name: "alice", Email: "a@x.io", Password: "pw"},
			setupMocks: func(*repoMocks.MockUserRepository) {},
			wantErrMsg: "password must be at least 3 characters",
		},
		{
			name: "email taken",
			in:   RegisterInput{Name: "alice", Email: "a@x.io", Password: "pw1"},
			setupMocks: func(mRepo *repoMocks.MockUserRepository) {
				mRepo.On("Create", ctx, mock.Anything).
					Return(nil, fmt.Errorf("%w: users_email_key", repository.ErrDuplicate))
			},
			wantErr: ErrEmailTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockUserRepository)
			svc := NewUserService(mRepo, testTokens())
			tt.setupMocks(mRepo)

			u, err := svc.Register(ctx, tt.in)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else if tt.wantErrMsg != "" {
				var verr *ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, tt.wantErrMsg, verr.Message)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, int64(1), u.ID)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_Login(t *testing.T) {
	ctx := context.Background()
	hash, err := auth.HashPassword("secret")
	require.NoError(t, err)
	stored := &model.User{ID: 9, Email: "a@x.io", PasswordHash: hash, Role: model.RoleAdmin}

	tests := []struct {
		name       string
		in         LoginInput
		setupMocks func(mRepo *repoMocks.MockUserRepository)
		wantErr    error
	}{
		{
			name: "success",
			in:   LoginInput{Email: "A@x.io", Password: "secret"},
			setupMocks: func(mRepo *repoMocks.MockUserRepository) {
				mRepo.On("FindByEmail", ctx, "a@x.io").Return(stored, nil)
			},
		},
		{
			name: "wrong password",
			in:   LoginInput{Email: "a@x.io", Password: "nope"},
			setupMocks: func(mRepo *repoMocks.MockUserRepository) {
				mRepo.On("FindByEmail", ctx, "a@x.io").Return(stored, nil)
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name: "unknown email",
			in:   LoginInput{Email: "b@x.io", Password: "secret"},
			setupMocks: func(mRepo *repoMocks.MockUserRepository) {
				mRepo.On("FindByEmail", ctx, "b@x.io").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockUserRepository)
			tokens := testTokens()
			svc := NewUserService(mRepo, tokens)
			tt.setupMocks(mRepo)

			u, pair, err := svc.Login(ctx, tt.in)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, u)
				assert.Empty(t, pair.Access)
			} else {
				require.NoError(t, err)
				id, err := tokens.VerifyAccess(pair.Access)
				require.NoError(t, err)
				assert.Equal(t, int64(9), id.ID)
				assert.Equal(t, model.RoleAdmin, id.Role)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_Refresh(t *testing.T) {
	ctx := context.Background()
	tokens := testTokens()
	pair, err := tokens.Issue(auth.Identity{ID: 4, Role: model.RoleUser})
	require.NoError(t, err)

	t.Run("reloads user and issues new pair", func(t *testing.T) {
		mRepo := new(repoMocks.MockUserRepository)
		mRepo.On("FindByID", ctx, int64(4)).Return(&model.User{ID: 4, Role: model.RoleAdmin}, nil)
		svc := NewUserService(mRepo, tokens)

		u, next, err := svc.Refresh(ctx, pair.Refresh)

		require.NoError(t, err)
		assert.Equal(t, int64(4), u.ID)
		id, err := tokens.VerifyAccess(next.Access)
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, id.Role)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		svc := NewUserService(new(repoMocks.MockUserRepository), tokens)
		_, _, err := svc.Refresh(ctx, pair.Access)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("deleted user", func(t *testing.T) {
		mRepo := new(repoMocks.MockUserRepository)
		mRepo.On("FindByID", ctx, int64(4)).Return(nil, sql.ErrNoRows)
		svc := NewUserService(mRepo, tokens)

		_, _, err := svc.Refresh(ctx, pair.Refresh)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestUserService_MeAndProfile(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockUserRepository)
	svc := NewUserService(mRepo, testTokens())

	mRepo.On("FindByID", ctx, int64(1)).Return(&model.User{ID: 1}, nil)
	mRepo.On("FindByID", ctx, int64(2)).Return(nil, sql.ErrNoRows)
	mRepo.On("UpsertProfile", ctx, &model.Profile{UserID: 1, Bio: "hello", AvatarURL: "https://img.test/a.png"}).
		Return(&model.Profile{UserID: 1, Bio: "hello"}, nil)

	u, err := svc.Me(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)

	_, err = svc.Me(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := svc.UpdateProfile(ctx, 1, ProfileInput{Bio: " hello ", AvatarURL: "https://img.test/a.png"})
	assert.NoError(t, err)
	assert.Equal(t, "hello", p.Bio)

	_, err = svc.UpdateProfile(ctx, 1, ProfileInput{AvatarURL: "not a url"})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "avatar_url", verr.Field)

	mRepo.AssertExpectations(t)
}

func TestUserService_List(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockUserRepository)
	svc := NewUserService(mRepo, testTokens())

	mRepo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
		Return(&repository.PageResult[model.User]{Items: []model.User{{ID: 1}}, Total: 1}, nil)

	res, err := svc.List(ctx, 0, -1)

	assert.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	mRepo.AssertExpectations(t)
}
