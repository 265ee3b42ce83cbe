package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"imagedrive/internal/domain"
)

// MinRetentionPeriod минимальный срок хранения элементов в корзине
const MinRetentionPeriod = time.Hour

type TrashService struct {
	folders          FolderStore
	images           ImageStore
	trash            TrashStore
	engine           *CascadeEngine
	defaultRetention time.Duration
	logger           *slog.Logger
}

func NewTrashService(
	folders FolderStore,
	images ImageStore,
	trash TrashStore,
	engine *CascadeEngine,
	defaultRetention time.Duration,
	logger *slog.Logger,
) *TrashService {
	return &TrashService{
		folders:          folders,
		images:           images,
		trash:            trash,
		engine:           engine,
		defaultRetention: defaultRetention,
		logger:           logger,
	}
}

// ListTrash получает содержимое корзины со сроком окончательного удаления
func (s *TrashService) ListTrash(ctx context.Context, ownerID string) (*domain.TrashContents, error) {
	settings, err := s.trash.GetSettings(ctx, ownerID, s.defaultRetention)
	if err != nil {
		return nil, err
	}
	retention := settings.Retention()

	folders, err := s.folders.ListTrashed(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	images, err := s.images.ListTrashed(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	contents := &domain.TrashContents{
		Folders: make([]domain.TrashedFolder, 0, len(folders)),
		Images:  make([]domain.TrashedImage, 0, len(images)),
	}
	for _, f := range folders {
		contents.Folders = append(contents.Folders, domain.TrashedFolder{
			Folder:    f,
			ExpiresAt: domain.ExpiresAt(f.DeletedAt, retention),
		})
	}
	for _, i := range images {
		contents.Images = append(contents.Images, domain.TrashedImage{
			Image:     i,
			ExpiresAt: domain.ExpiresAt(i.DeletedAt, retention),
		})
	}
	return contents, nil
}

// RestoreItem восстанавливает элемент из корзины и возвращает его
func (s *TrashService) RestoreItem(ctx context.Context, ownerID string, itemType string, itemID string) (*domain.RestoredItem, error) {
	typ, err := domain.ParseItemType(itemType)
	if err != nil {
		return nil, err
	}

	switch typ {
	case domain.ItemTypeFolder:
		id, err := parseFolderID(itemID)
		if err != nil {
			return nil, err
		}
		folder, err := s.engine.Restore(ctx, ownerID, id)
		if err != nil {
			return nil, err
		}
		return &domain.RestoredItem{ItemType: typ, Folder: folder}, nil
	default:
		id, err := parseImageID(itemID)
		if err != nil {
			return nil, err
		}
		image, err := s.engine.RestoreImage(ctx, ownerID, id)
		if err != nil {
			return nil, err
		}
		return &domain.RestoredItem{ItemType: typ, Image: image}, nil
	}
}

// PermanentDelete окончательно удаляет элемент, находящийся в корзине
func (s *TrashService) PermanentDelete(ctx context.Context, ownerID string, itemType string, itemID string) error {
	typ, err := domain.ParseItemType(itemType)
	if err != nil {
		return err
	}

	switch typ {
	case domain.ItemTypeFolder:
		id, err := parseFolderID(itemID)
		if err != nil {
			return err
		}
		_, err = s.engine.PermanentDeleteFolder(ctx, ownerID, id)
		return err
	default:
		id, err := parseImageID(itemID)
		if err != nil {
			return err
		}
		return s.engine.PermanentDeleteImage(ctx, ownerID, id)
	}
}

// EmptyTrash полностью очищает корзину пользователя
func (s *TrashService) EmptyTrash(ctx context.Context, ownerID string) (PurgeStats, error) {
	return s.engine.EmptyTrash(ctx, ownerID)
}

// GetSettings получает настройки корзины пользователя
func (s *TrashService) GetSettings(ctx context.Context, ownerID string) (*domain.TrashSettings, error) {
	settings, err := s.trash.GetSettings(ctx, ownerID, s.defaultRetention)
	if err != nil {
		return nil, err
	}
	settings.RetentionPeriod = settings.Retention().String()
	return settings, nil
}

// UpdateRetentionPeriod обновляет период хранения элементов в корзине
func (s *TrashService) UpdateRetentionPeriod(ctx context.Context, ownerID string, period string) (*domain.TrashSettings, error) {
	retention, err := time.ParseDuration(strings.TrimSpace(period))
	if err != nil {
		return nil, fmt.Errorf("retention period %q: %w", period, domain.ErrInvalidInput)
	}
	if retention < MinRetentionPeriod {
		return nil, fmt.Errorf("retention period must be at least %s: %w", MinRetentionPeriod, domain.ErrInvalidInput)
	}

	settings := &domain.TrashSettings{
		OwnerID:          ownerID,
		RetentionSeconds: int64(retention / time.Second),
	}
	if err := s.trash.UpsertSettings(ctx, settings); err != nil {
		return nil, err
	}
	settings.RetentionPeriod = settings.Retention().String()

	s.logger.Info("trash retention updated", "owner_id", ownerID, "retention", settings.RetentionPeriod)
	return settings, nil
}

func parseFolderID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("folder id %q: %w", raw, domain.ErrInvalidInput)
	}
	return id, nil
}

func parseImageID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("image id %q: %w", raw, domain.ErrInvalidInput)
	}
	return id, nil
}
