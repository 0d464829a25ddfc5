package repository

import (
	"context"
	"errors"

	"mediavault/internal/model"
)

// ErrDuplicate is returned when a write violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// MediaRepository defines data access for all media kinds using SQL queries only.
// No business logic here, strictly persistence operations. Missing rows surface
// as sql.ErrNoRows.
type MediaRepository interface {
	// Create inserts a new row into the kind's table and returns the stored record.
	Create(ctx context.Context, m *model.Media) (*model.Media, error)

	// FindByID returns a row of the given kind by its ID.
	FindByID(ctx context.Context, kind model.MediaKind, id int64) (*model.Media, error)

	// List returns a page of rows, newest first, and the total count for the filter.
	List(ctx context.Context, kind model.MediaKind, q MediaQuery) (*PageResult[model.Media], error)

	// Update overwrites title, description, file and url of an existing row,
	// but only while its file column still equals prevFile. A row that is gone
	// or whose file changed since it was read yields sql.ErrNoRows.
	Update(ctx context.Context, m *model.Media, prevFile *string) (*model.Media, error)

	// Delete removes a row by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, kind model.MediaKind, id int64) error

	// StoredFiles returns every non-null stored filename of the kind.
	StoredFiles(ctx context.Context, kind model.MediaKind) (map[string]struct{}, error)
}

// UserRepository defines data access for users and their profiles.
type UserRepository interface {
	// Create inserts the user and an empty profile in one transaction.
	// Returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, u *model.User) (*model.User, error)

	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByID returns the user with its profile attached.
	FindByID(ctx context.Context, id int64) (*model.User, error)

	List(ctx context.Context, pq PageQuery) (*PageResult[model.User], error)

	UpsertProfile(ctx context.Context, p *model.Profile) (*model.Profile, error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// MediaQuery filters a media listing. UserID 0 means every owner.
type MediaQuery struct {
	PageQuery
	UserID int64
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
