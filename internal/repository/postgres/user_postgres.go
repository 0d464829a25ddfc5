package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"mediavault/internal/model"
	"mediavault/internal/repository"
)

// UserPostgres is a PostgreSQL implementation of repository.UserRepository.
type UserPostgres struct {
	db *sql.DB
}

// NewUserPostgres creates a new UserPostgres repository.
func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

const userColumns = `id, name, email, password, role, created_at`

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts the user and its empty profile atomically.
func (r *UserPostgres) Create(ctx context.Context, u *model.User) (*model.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := fmt.Sprintf(`
		INSERT INTO users (name, email, password, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s
	`, userColumns)
	out, err := scanUser(tx.QueryRowContext(ctx, q, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt))
	if err != nil {
		return nil, mapError(err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO profiles (user_id) VALUES ($1)`, out.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

// FindByEmail looks a user up by login email.
func (r *UserPostgres) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	q := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	return scanUser(r.db.QueryRowContext(ctx, q, email))
}

// FindByID returns the user joined with its profile, if any.
func (r *UserPostgres) FindByID(ctx context.Context, id int64) (*model.User, error) {
	const q = `
		SELECT u.id, u.name, u.email, u.password, u.role, u.created_at,
		       p.bio, p.avatar_url, p.updated_at
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.id = $1
	`
	var (
		u         model.User
		bio       sql.NullString
		avatarURL sql.NullString
		updatedAt sql.NullTime
	)
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt,
		&bio, &avatarURL, &updatedAt,
	); err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		u.Profile = &model.Profile{
			UserID:    u.ID,
			Bio:       bio.String,
			AvatarURL: avatarURL.String,
			UpdatedAt: updatedAt.Time,
		}
	}
	return &u, nil
}

// List returns users ordered by ID with a total count.
func (r *UserPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.User], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`SELECT %s FROM users ORDER BY id LIMIT $1 OFFSET $2`, userColumns)
	rows, err := r.db.QueryContext(ctx, q, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.User]{Items: items, Total: total}, nil
}

// UpsertProfile creates or replaces the profile of p.UserID.
func (r *UserPostgres) UpsertProfile(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	const q = `
		INSERT INTO profiles (user_id, bio, avatar_url, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id) DO UPDATE
		SET bio = EXCLUDED.bio, avatar_url = EXCLUDED.avatar_url, updated_at = now()
		RETURNING user_id, bio, avatar_url, updated_at
	`
	var out model.Profile
	if err := r.db.QueryRowContext(ctx, q, p.UserID, p.Bio, p.AvatarURL).Scan(
		&out.UserID, &out.Bio, &out.AvatarURL, &out.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}
