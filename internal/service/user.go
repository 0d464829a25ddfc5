package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediavault/internal/auth"
	"mediavault/internal/model"
	"mediavault/internal/repository"
)

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=3"`
}

// LoginInput is the body of a login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput replaces the editable profile fields.
type ProfileInput struct {
	Bio       string `json:"bio" validate:"max=500"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url,max=2048"`
}

// UserListResult is the service-level DTO for paginated users.
type UserListResult struct {
	Items []model.User `json:"data"`
	Total int          `json:"total"`
}

// Tokens issues and checks the session token pair.
type Tokens interface {
	Issue(id auth.Identity) (auth.TokenPair, error)
	VerifyRefresh(token string) (*auth.Identity, error)
}

// UserService defines account use cases.
type UserService interface {
	// Register creates a USER account with a hashed password and an empty profile.
	Register(ctx context.Context, in RegisterInput) (*model.User, error)

	// Login checks credentials and issues a token pair.
	Login(ctx context.Context, in LoginInput) (*model.User, auth.TokenPair, error)

	// Refresh exchanges a valid refresh token for a new pair, reloading the user so role changes apply.
	Refresh(ctx context.Context, refreshToken string) (*model.User, auth.TokenPair, error)

	// Me returns the user with their profile.
	Me(ctx context.Context, id int64) (*model.User, error)

	UpdateProfile(ctx context.Context, id int64, in ProfileInput) (*model.Profile, error)

	List(ctx context.Context, limit, offset int) (*UserListResult, error)
}

type userService struct {
	repo   repository.UserRepository
	tokens Tokens
	now    func() time.Time
}

// NewUserService constructs a new UserService.
func NewUserService(repo repository.UserRepository, tokens Tokens) UserService {
	return &userService{repo: repo, tokens: tokens, now: time.Now}
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func identityOf(u *model.User) auth.Identity {
	return auth.Identity{ID: u.ID, Email: u.Email, Role: u.Role}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.repo.Create(ctx, &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *userService) Login(ctx context.Context, in LoginInput) (*model.User, auth.TokenPair, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, auth.TokenPair{}, err
	}

	u, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.TokenPair{}, ErrInvalidCredentials
		}
		return nil, auth.TokenPair{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		return nil, auth.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(identityOf(u))
	if err != nil {
		return nil, auth.TokenPair{}, err
	}
	return u, pair, nil
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (*model.User, auth.TokenPair, error) {
	id, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, auth.TokenPair{}, ErrInvalidToken
	}

	u, err := s.repo.FindByID(ctx, id.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.TokenPair{}, ErrInvalidToken
		}
		return nil, auth.TokenPair{}, err
	}

	pair, err := s.tokens.Issue(identityOf(u))
	if err != nil {
		return nil, auth.TokenPair{}, err
	}
	return u, pair, nil
}

func (s *userService) Me(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id int64, in ProfileInput) (*model.Profile, error) {
	in.Bio = strings.TrimSpace(in.Bio)
	in.AvatarURL = strings.TrimSpace(in.AvatarURL)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	return s.repo.UpsertProfile(ctx, &model.Profile{UserID: id, Bio: in.Bio, AvatarURL: in.AvatarURL})
}

func (s *userService) List(ctx context.Context, limit, offset int) (*UserListResult, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &UserListResult{Items: res.Items, Total: res.Total}, nil
}
