package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cron "github.com/robfig/cron/v3"

	"imagedrive/internal/domain"
	"imagedrive/internal/metrics"
)

var (
	// errNoLongerExpired элемент восстановили или удалили заново после выборки
	errNoLongerExpired = errors.New("item is no longer expired")
	// errActiveDescendants в поддереве просроченной папки есть восстановленные папки
	errActiveDescendants = errors.New("folder has active descendants")
)

// SweepReport итог одного прохода очистки корзины
type SweepReport struct {
	FoldersPurged int
	ImagesPurged  int
	Skipped       int
	Failures      int
}

// Sweeper окончательно удаляет элементы, пролежавшие в корзине дольше срока хранения.
// Папка удаляется вместе с поддеревом и изображениями по собственному deleted_at;
// изображения, удалённые по одному из активной папки, удаляются по своему сроку.
// Папка с восстановленными потомками пропускается, пока их не перенесут или не удалят.
type Sweeper struct {
	trash            TrashStore
	engine           *CascadeEngine
	defaultRetention time.Duration
	now              Clock
	logger           *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

func NewSweeper(trash TrashStore, engine *CascadeEngine, defaultRetention time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		trash:            trash,
		engine:           engine,
		defaultRetention: defaultRetention,
		now:              time.Now,
		logger:           logger,
	}
}

// Sweep выполняет один проход. Ошибка по одному элементу не прерывает проход.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) SweepReport {
	var report SweepReport

	folders, err := s.trash.ExpiredFolders(ctx, now, s.defaultRetention)
	if err != nil {
		s.logger.Error("failed to find expired folders", "error", err)
		report.Failures++
		metrics.SweepFailures.Inc()
	}

	purged := make(map[int64]struct{})
	for _, folder := range folders {
		if ctx.Err() != nil {
			break
		}
		if _, done := purged[folder.ID]; done {
			continue
		}

		res, err := s.sweepFolder(ctx, folder)
		switch {
		case errors.Is(err, errNoLongerExpired), errors.Is(err, domain.ErrNotFound):
			report.Skipped++
		case errors.Is(err, errActiveDescendants):
			report.Skipped++
			s.logger.Warn("expired folder kept because of restored descendants",
				"owner_id", folder.OwnerID, "folder_id", folder.ID, "path", folder.Path, "error", err)
		case err != nil:
			report.Failures++
			metrics.SweepFailures.Inc()
			s.logger.Error("failed to purge expired folder",
				"owner_id", folder.OwnerID, "folder_id", folder.ID, "path", folder.Path, "error", err)
		default:
			for _, id := range res.folderIDs {
				purged[id] = struct{}{}
			}
			report.FoldersPurged += len(res.folderIDs)
			report.ImagesPurged += res.images
			metrics.SweepPurged.WithLabelValues(string(domain.ItemTypeFolder)).Add(float64(len(res.folderIDs)))
			metrics.SweepPurged.WithLabelValues(string(domain.ItemTypeImage)).Add(float64(res.images))
		}
	}

	// изображения из папок, удалённых выше, в выборку уже не попадут
	images, err := s.trash.ExpiredImages(ctx, now, s.defaultRetention)
	if err != nil {
		s.logger.Error("failed to find expired images", "error", err)
		report.Failures++
		metrics.SweepFailures.Inc()
	}

	for _, image := range images {
		if ctx.Err() != nil {
			break
		}

		err := s.sweepImage(ctx, image)
		switch {
		case errors.Is(err, errNoLongerExpired), errors.Is(err, domain.ErrNotFound):
			report.Skipped++
		case err != nil:
			report.Failures++
			metrics.SweepFailures.Inc()
			s.logger.Error("failed to purge expired image",
				"owner_id", image.OwnerID, "image_id", image.ID, "error", err)
		default:
			report.ImagesPurged++
			metrics.SweepPurged.WithLabelValues(string(domain.ItemTypeImage)).Inc()
		}
	}

	s.logger.Info("trash sweep finished",
		"folders_purged", report.FoldersPurged,
		"images_purged", report.ImagesPurged,
		"skipped", report.Skipped,
		"failures", report.Failures)
	return report
}

func (s *Sweeper) sweepFolder(ctx context.Context, expired domain.Folder) (res *subtreePurge, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while purging folder %d: %v", expired.ID, r)
		}
	}()

	return s.engine.purgeFolder(ctx, expired.OwnerID, expired.ID, func(ctx context.Context, folder *domain.Folder) error {
		if !folder.IsDeleted || !sameInstant(folder.DeletedAt, expired.DeletedAt) {
			return errNoLongerExpired
		}
		subtree, err := s.engine.folders.FindSubtree(ctx, folder.OwnerID, folder)
		if err != nil {
			return err
		}
		for _, f := range subtree {
			if !f.IsDeleted {
				return fmt.Errorf("folder %d (%s): %w", f.ID, f.Path, errActiveDescendants)
			}
		}
		return nil
	})
}

func (s *Sweeper) sweepImage(ctx context.Context, expired domain.Image) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while purging image %s: %v", expired.ID, r)
		}
	}()

	return s.engine.purgeImage(ctx, expired.OwnerID, expired.ID, func(image *domain.Image) error {
		if !image.IsDeleted || !sameInstant(image.DeletedAt, expired.DeletedAt) {
			return errNoLongerExpired
		}
		return nil
	})
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Equal(*b)
}

// Start запускает проходы по расписанию cron
func (s *Sweeper) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, s.runScheduled); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c

	s.logger.Info("trash sweeper scheduled", "schedule", schedule, "default_retention", s.defaultRetention.String())
	return nil
}

// Stop останавливает расписание и ждёт завершения текущего прохода
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
}

func (s *Sweeper) runScheduled() {
	s.Sweep(context.Background(), s.now())
}
