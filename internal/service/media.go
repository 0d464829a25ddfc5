package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mediavault/internal/model"
	"mediavault/internal/repository"
	"mediavault/internal/storage"
)

const (
	defaultLimit = 10
	maxLimit     = 100

	updateAttempts = 3
)

// Upload is a binary supplied by a client or produced server-side.
type Upload struct {
	Reader      io.Reader
	Filename    string // client-side name, only used to derive the stored name
	ContentType string
	Size        int64 // -1 when unknown
}

// CreateMediaInput carries a new media item. Exactly one of File and URL must be set.
type CreateMediaInput struct {
	Kind        model.MediaKind
	Title       string
	Description string
	URL         string
	File        *Upload
	UserID      int64
}

// UpdateMediaInput is a partial update; nil fields are left unchanged.
type UpdateMediaInput struct {
	Kind        model.MediaKind
	ID          int64
	UserID      int64
	Title       *string
	Description *string
	URL         *string
	File        *Upload
}

// ListMediaInput pages a listing. UserID 0 lists every owner.
type ListMediaInput struct {
	Limit  int
	Offset int
	UserID int64
}

// MediaListResult is the service-level DTO for paginated media.
type MediaListResult struct {
	Items []model.Media `json:"data"`
	Total int           `json:"total"`
}

// MediaService defines the upload/replace/delete workflow shared by every media kind.
type MediaService interface {
	// Create stores the binary (if any) then inserts the row, removing the binary again if the insert fails.
	Create(ctx context.Context, in CreateMediaInput) (*model.Media, error)

	// Get returns a single item by kind and ID.
	Get(ctx context.Context, kind model.MediaKind, id int64) (*model.Media, error)

	// List returns items using limit/offset and a total count.
	List(ctx context.Context, kind model.MediaKind, in ListMediaInput) (*MediaListResult, error)

	// Update applies a partial update owned by in.UserID. A replaced binary is
	// deleted only after the row points at its successor.
	Update(ctx context.Context, in UpdateMediaInput) (*model.Media, error)

	// Delete removes the row, then its binary on a best-effort basis.
	Delete(ctx context.Context, kind model.MediaKind, id, userID int64) error
}

// mediaService is a concrete implementation of MediaService.
type mediaService struct {
	store storage.Storage
	repo  repository.MediaRepository
	log   *zap.Logger
	now   func() time.Time
}

// NewMediaService constructs a new MediaService.
func NewMediaService(store storage.Storage, repo repository.MediaRepository, log *zap.Logger) MediaService {
	return &mediaService{store: store, repo: repo, log: log, now: time.Now}
}

// isSpace matches the Unicode whitespace set, byte order mark included.
func isSpace(r rune) bool { return unicode.IsSpace(r) || r == '\uFEFF' }

// deriveName builds the stored filename "<unix-ms>-<name>" with whitespace runs
// collapsed to '-'. A name that is only an extension yields "<unix-ms><ext>".
func deriveName(now time.Time, original string) string {
	name := path.Base(strings.ReplaceAll(original, "\\", "/"))
	name = strings.Join(strings.FieldsFunc(name, isSpace), "-")
	switch {
	case name == "" || name == "." || name == "/":
		name = "upload"
	case strings.HasPrefix(name, ".") && !strings.Contains(name[1:], "."):
		return fmt.Sprintf("%d%s", now.UnixMilli(), name)
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), name)
}

// collisionName inserts a random segment after the timestamp prefix.
func collisionName(derived string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	ms, rest, ok := strings.Cut(derived, "-")
	if !ok {
		ext := path.Ext(derived)
		return fmt.Sprintf("%s-%s%s", strings.TrimSuffix(derived, ext), suffix, ext)
	}
	return fmt.Sprintf("%s-%s-%s", ms, suffix, rest)
}

// putObject writes the upload under the kind's directory and returns the stored filename.
func (s *mediaService) putObject(ctx context.Context, kind model.MediaKind, up *Upload) (string, error) {
	if up.Reader == nil {
		return "", ErrReaderNil
	}
	name := deriveName(s.now(), up.Filename)
	opts := storage.PutObjectOptions{
		Size:        up.Size,
		ContentType: up.ContentType,
		Metadata:    map[string]string{"original-filename": up.Filename},
	}
	for attempt := 0; ; attempt++ {
		_, err := s.store.Put(ctx, kind.Dir()+"/"+name, up.Reader, opts)
		if err == nil {
			return name, nil
		}
		if errors.Is(err, storage.ErrObjectExists) && attempt == 0 {
			name = collisionName(name)
			continue
		}
		return "", fmt.Errorf("upload to storage: %w", err)
	}
}

// removeObject deletes a binary whose loss no longer affects correctness.
func (s *mediaService) removeObject(ctx context.Context, key, reason string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Warn("media_file_delete_failed",
			zap.String("key", key),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}

func validateURL(kind model.MediaKind, raw string) error {
	if err := validate.Var(raw, "url"); err != nil {
		return invalid(kind.URLField(), fmt.Sprintf("%s must be a valid URL", kind.URLField()))
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid(kind.URLField(), fmt.Sprintf("%s must be an http or https URL", kind.URLField()))
	}
	return nil
}

func validateCreate(in CreateMediaInput) error {
	if !in.Kind.Valid() {
		return invalid("kind", "unknown media kind")
	}
	if strings.TrimSpace(in.Title) == "" {
		return invalid("title", "title is required")
	}
	hasFile := in.File != nil
	hasURL := strings.TrimSpace(in.URL) != ""
	switch {
	case !hasFile && !hasURL:
		return invalid(in.Kind.FileField(),
			fmt.Sprintf("Either a %s file or a %s URL must be provided.", in.Kind, in.Kind))
	case hasFile && hasURL:
		return invalid(in.Kind.FileField(),
			fmt.Sprintf("Provide either a %s file or a %s URL, not both.", in.Kind, in.Kind))
	case hasURL:
		return validateURL(in.Kind, strings.TrimSpace(in.URL))
	}
	return nil
}

func (s *mediaService) Create(ctx context.Context, in CreateMediaInput) (*model.Media, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	m := &model.Media{
		Kind:        in.Kind,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		UserID:      in.UserID,
		CreatedAt:   s.now().UTC(),
	}

	var key string
	if in.File != nil {
		name, err := s.putObject(ctx, in.Kind, in.File)
		if err != nil {
			return nil, err
		}
		m.File = &name
		key = m.StorageKey()
	} else {
		u := strings.TrimSpace(in.URL)
		m.URL = &u
	}

	stored, err := s.repo.Create(ctx, m)
	if err != nil {
		// Rollback: delete the object from storage
		if key != "" {
			if delErr := s.store.Delete(ctx, key); delErr != nil {
				return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
			}
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

func (s *mediaService) find(ctx context.Context, kind model.MediaKind, id int64) (*model.Media, error) {
	if !kind.Valid() {
		return nil, invalid("kind", "unknown media kind")
	}
	m, err := s.repo.FindByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// Get returns a media item by ID.
func (s *mediaService) Get(ctx context.Context, kind model.MediaKind, id int64) (*model.Media, error) {
	return s.find(ctx, kind, id)
}

// List returns paginated media without exposing repository types.
func (s *mediaService) List(ctx context.Context, kind model.MediaKind, in ListMediaInput) (*MediaListResult, error) {
	if !kind.Valid() {
		return nil, invalid("kind", "unknown media kind")
	}
	limit, offset := in.Limit, in.Offset
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, kind, repository.MediaQuery{
		PageQuery: repository.PageQuery{Limit: limit, Offset: offset},
		UserID:    in.UserID,
	})
	if err != nil {
		return nil, err
	}
	return &MediaListResult{Items: res.Items, Total: res.Total}, nil
}

func validateUpdate(in UpdateMediaInput) error {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return invalid("title", "title is required")
	}
	hasURL := in.URL != nil && strings.TrimSpace(*in.URL) != ""
	if in.File != nil && hasURL {
		return invalid(in.Kind.FileField(),
			fmt.Sprintf("Provide either a %s file or a %s URL, not both.", in.Kind, in.Kind))
	}
	if hasURL {
		return validateURL(in.Kind, strings.TrimSpace(*in.URL))
	}
	return nil
}

// applyUpdate copies the requested changes onto m. newName is the freshly
// stored filename, or "" when no binary was uploaded.
func applyUpdate(m *model.Media, in UpdateMediaInput, newName string) {
	if in.Title != nil {
		m.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		m.Description = *in.Description
	}
	switch {
	case newName != "":
		name := newName
		m.File = &name
		m.URL = nil
	case in.URL != nil && strings.TrimSpace(*in.URL) != "":
		u := strings.TrimSpace(*in.URL)
		m.URL = &u
		m.File = nil
	}
}

func (s *mediaService) Update(ctx context.Context, in UpdateMediaInput) (_ *model.Media, err error) {
	m, err := s.find(ctx, in.Kind, in.ID)
	if err != nil {
		return nil, err
	}
	if m.UserID != in.UserID {
		return nil, ErrForbidden
	}
	if err := validateUpdate(in); err != nil {
		return nil, err
	}

	var newName string
	if in.File != nil {
		if newName, err = s.putObject(ctx, in.Kind, in.File); err != nil {
			return nil, err
		}
		defer func() {
			if err != nil {
				s.removeObject(ctx, in.Kind.Dir()+"/"+newName, "update_rollback")
			}
		}()
	}

	// The write lands only while the row still holds the file that was read.
	for attempt := 1; ; attempt++ {
		prevFile, oldKey := m.File, m.StorageKey()
		applyUpdate(m, in, newName)

		var updated *model.Media
		updated, err = s.repo.Update(ctx, m, prevFile)
		if err == nil {
			if oldKey != "" && oldKey != updated.StorageKey() {
				s.removeObject(ctx, oldKey, "replaced")
			}
			return updated, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("db update failed: %w", err)
		}
		if attempt == updateAttempts {
			s.log.Warn("media_update_conflict", zap.String("kind", string(in.Kind)), zap.Int64("id", in.ID))
			return nil, ErrConflict
		}
		if m, err = s.find(ctx, in.Kind, in.ID); err != nil {
			return nil, err
		}
		if m.UserID != in.UserID {
			return nil, ErrForbidden
		}
	}
}

func (s *mediaService) Delete(ctx context.Context, kind model.MediaKind, id, userID int64) error {
	m, err := s.find(ctx, kind, id)
	if err != nil {
		return err
	}
	if m.UserID != userID {
		return ErrForbidden
	}
	// Row first: a failed file delete then leaves an orphan for the sweeper, never a dangling row.
	if err := s.repo.Delete(ctx, kind, id); err != nil {
		return fmt.Errorf("db delete failed: %w", err)
	}
	s.removeObject(ctx, m.StorageKey(), "deleted")
	return nil
}
