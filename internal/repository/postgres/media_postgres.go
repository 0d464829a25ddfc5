package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"mediavault/internal/model"
	"mediavault/internal/repository"
)

// MediaPostgres is a PostgreSQL implementation of repository.MediaRepository.
// Every kind has its own table with identical columns; the table name comes
// from the kind, never from user input.
type MediaPostgres struct {
	db *sql.DB
}

// NewMediaPostgres creates a new MediaPostgres repository.
func NewMediaPostgres(db *sql.DB) *MediaPostgres {
	return &MediaPostgres{db: db}
}

var _ repository.MediaRepository = (*MediaPostgres)(nil)

const mediaColumns = `id, title, description, file, url, user_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedia(row rowScanner, kind model.MediaKind) (*model.Media, error) {
	m := model.Media{Kind: kind}
	if err := row.Scan(
		&m.ID,
		&m.Title,
		&m.Description,
		&m.File,
		&m.URL,
		&m.UserID,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func table(kind model.MediaKind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown media kind %q", kind)
	}
	return kind.Table(), nil
}

// Create inserts a new row and returns the stored record.
func (r *MediaPostgres) Create(ctx context.Context, m *model.Media) (*model.Media, error) {
	t, err := table(m.Kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
		INSERT INTO %s (title, description, file, url, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING %s
	`, t, mediaColumns)
	row := r.db.QueryRowContext(ctx, q,
		m.Title,
		m.Description,
		m.File,
		m.URL,
		m.UserID,
		m.CreatedAt,
	)
	out, err := scanMedia(row, m.Kind)
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// FindByID fetches a single row by its ID.
func (r *MediaPostgres) FindByID(ctx context.Context, kind model.MediaKind, id int64) (*model.Media, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, mediaColumns, t)
	return scanMedia(r.db.QueryRowContext(ctx, q, id), kind)
}

// List returns rows using LIMIT/OFFSET pagination and a total count.
func (r *MediaPostgres) List(ctx context.Context, kind model.MediaKind, mq repository.MediaQuery) (*repository.PageResult[model.Media], error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}

	where := ""
	args := []any{}
	if mq.UserID != 0 {
		where = "WHERE user_id = $1"
		args = append(args, mq.UserID)
	}

	var total int
	qCount := fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, t, where)
	if err := r.db.QueryRowContext(ctx, qCount, args...).Scan(&total); err != nil {
		return nil, err
	}

	qList := fmt.Sprintf(`
		SELECT %s
		FROM %s %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, mediaColumns, t, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, qList, append(args, mq.Limit, mq.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Media, 0)
	for rows.Next() {
		m, err := scanMedia(rows, kind)
		if err != nil {
			return nil, err
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Media]{Items: items, Total: total}, nil
}

// Update rewrites the mutable columns and bumps updated_at, guarded by the
// file value the caller read.
func (r *MediaPostgres) Update(ctx context.Context, m *model.Media, prevFile *string) (*model.Media, error) {
	t, err := table(m.Kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
		UPDATE %s
		SET title = $2, description = $3, file = $4, url = $5, updated_at = now()
		WHERE id = $1 AND file IS NOT DISTINCT FROM $6
		RETURNING %s
	`, t, mediaColumns)
	row := r.db.QueryRowContext(ctx, q, m.ID, m.Title, m.Description, m.File, m.URL, prevFile)
	out, err := scanMedia(row, m.Kind)
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// Delete removes a row by ID. It does not return an error if the row does not exist.
func (r *MediaPostgres) Delete(ctx context.Context, kind model.MediaKind, id int64) error {
	t, err := table(kind)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t), id)
	return err
}

// StoredFiles returns the set of filenames referenced by rows of the kind.
func (r *MediaPostgres) StoredFiles(ctx context.Context, kind model.MediaKind) (map[string]struct{}, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT file FROM %s WHERE file IS NOT NULL`, t))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := make(map[string]struct{})
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		files[f] = struct{}{}
	}
	return files, rows.Err()
}
