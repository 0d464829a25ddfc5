// Package sweeper periodically removes stored binaries that no media row
// references, e.g. leftovers of a crash between writing a file and
// committing its row.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"mediavault/internal/config"
	"mediavault/internal/model"
	"mediavault/internal/repository"
	"mediavault/internal/storage"
)

// Result summarizes one sweep.
type Result struct {
	Scanned int
	Deleted int
}

// Sweeper deletes unreferenced objects older than the grace period.
type Sweeper struct {
	repo     repository.MediaRepository
	store    storage.Storage
	interval time.Duration
	grace    time.Duration
	log      *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	scheduler *gocron.Scheduler
}

// New creates a Sweeper. Start schedules it.
func New(repo repository.MediaRepository, store storage.Storage, cfg config.SweeperConfig, log *zap.Logger) *Sweeper {
	return &Sweeper{
		repo:     repo,
		store:    store,
		interval: cfg.Interval,
		grace:    cfg.Grace,
		log:      log,
		now:      time.Now,
	}
}

// Sweep runs one pass over every media kind. Per-kind failures are logged
// and joined into the returned error; other kinds are still swept.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	var (
		res  Result
		errs []error
	)
	for _, kind := range model.Kinds {
		r, err := s.sweepKind(ctx, kind)
		res.Scanned += r.Scanned
		res.Deleted += r.Deleted
		if err != nil {
			s.log.Error("sweep_kind_failed", zap.String("kind", string(kind)), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}
	s.log.Info("sweep_done", zap.Int("scanned", res.Scanned), zap.Int("deleted", res.Deleted))
	return res, errors.Join(errs...)
}

func (s *Sweeper) sweepKind(ctx context.Context, kind model.MediaKind) (Result, error) {
	var res Result
	prefix := kind.Dir() + "/"

	// List objects before loading references so a file committed in between is never missed.
	objs, err := s.store.List(ctx, prefix)
	if err != nil {
		return res, fmt.Errorf("list objects: %w", err)
	}
	refs, err := s.repo.StoredFiles(ctx, kind)
	if err != nil {
		return res, fmt.Errorf("load references: %w", err)
	}

	cutoff := s.now().Add(-s.grace)
	for _, obj := range objs {
		res.Scanned++
		name := strings.TrimPrefix(obj.Key, prefix)
		if _, ok := refs[name]; ok {
			continue
		}
		if obj.LastModified.After(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, obj.Key); err != nil {
			s.log.Warn("sweep_delete_failed", zap.String("key", obj.Key), zap.Error(err))
			continue
		}
		s.log.Info("sweep_deleted_orphan", zap.String("key", obj.Key))
		res.Deleted++
	}
	return res, nil
}

// Start schedules Sweep every interval. The first run waits one interval.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduler != nil {
		return errors.New("sweeper already started")
	}
	if s.interval <= 0 {
		return fmt.Errorf("invalid sweep interval %s", s.interval)
	}

	sched := gocron.NewScheduler(time.UTC)
	sched.SingletonModeAll()
	if _, err := sched.Every(s.interval).WaitForSchedule().Do(func() {
		_, _ = s.Sweep(ctx)
	}); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	sched.StartAsync()
	s.scheduler = sched
	s.log.Info("sweeper_started", zap.Duration("interval", s.interval), zap.Duration("grace", s.grace))
	return nil
}

// Stop halts the schedule. It is a no-op when not started.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduler == nil {
		return
	}
	s.scheduler.Stop()
	s.scheduler = nil
}
