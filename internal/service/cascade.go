package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"imagedrive/internal/domain"
	"imagedrive/internal/metrics"
)

// CascadeEngine выполняет операции над поддеревом папки: переименование,
// перемещение в корзину, восстановление и окончательное удаление.
// Каждая операция идёт в одной транзакции под блокировкой владельца.
type CascadeEngine struct {
	tx      Transactor
	folders FolderStore
	images  ImageStore
	objects ObjectStore
	logger  *slog.Logger
}

func NewCascadeEngine(
	tx Transactor,
	folders FolderStore,
	images ImageStore,
	objects ObjectStore,
	logger *slog.Logger,
) *CascadeEngine {
	return &CascadeEngine{
		tx:      tx,
		folders: folders,
		images:  images,
		objects: objects,
		logger:  logger,
	}
}

// PurgeStats считает окончательно удалённые записи
type PurgeStats struct {
	Folders int `json:"folders"`
	Images  int `json:"images"`
}

func (s *PurgeStats) add(p *subtreePurge) {
	s.Folders += len(p.folderIDs)
	s.Images += p.images
}

// subtreePurge результат удаления записей поддерева. payloads уничтожаются
// в хранилище только после фиксации транзакции.
type subtreePurge struct {
	folderIDs []int64
	images    int
	payloads  []domain.Image
}

func (p *subtreePurge) stats() PurgeStats {
	var stats PurgeStats
	if p != nil {
		stats.add(p)
	}
	return stats
}

// Rename переименовывает активную папку и переписывает пути всех потомков
func (e *CascadeEngine) Rename(ctx context.Context, ownerID string, folderID int64, newName string) (*domain.Folder, error) {
	name, err := domain.NormalizeName(newName)
	if err != nil {
		return nil, err
	}

	var renamed *domain.Folder
	err = withOwnerLock(ctx, e.tx, ownerID, func(ctx context.Context) error {
		folder, err := e.activeFolder(ctx, ownerID, folderID)
		if err != nil {
			return err
		}
		renamed = folder
		if folder.Name == name {
			return nil
		}

		exists, err := e.folders.ExistsActiveSibling(ctx, ownerID, folder.ParentID, name, folder.ID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("folder %q: %w", name, domain.ErrConflict)
		}

		var parentPath *string
		if folder.ParentID != nil {
			parent, err := e.folders.GetByID(ctx, ownerID, *folder.ParentID)
			if err != nil {
				return fmt.Errorf("failed to get parent of folder %d: %w", folder.ID, err)
			}
			parentPath = &parent.Path
		}

		oldPath := folder.Path
		newPath := domain.ComputePath(name, parentPath)

		subtree, err := e.folders.FindSubtree(ctx, ownerID, folder)
		if err != nil {
			return err
		}
		for _, descendant := range subtree {
			if descendant.ID == folder.ID {
				continue
			}
			rebased := domain.RebasePath(descendant.Path, oldPath, newPath)
			if err := e.folders.UpdatePath(ctx, ownerID, descendant.ID, rebased); err != nil {
				return err
			}
		}

		folder.Name = name
		folder.Path = newPath
		if err := e.folders.UpdateNameAndPath(ctx, folder); err != nil {
			return err
		}

		e.logger.Info("folder renamed",
			"owner_id", ownerID, "folder_id", folder.ID,
			"old_path", oldPath, "new_path", newPath, "descendants", len(subtree)-1)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.CascadeOperations.WithLabelValues("rename").Inc()
	return renamed, nil
}

// SoftDelete переносит папку, её поддерево и их изображения в корзину.
// Повторный вызов для уже удалённой папки ничего не меняет.
func (e *CascadeEngine) SoftDelete(ctx context.Context, ownerID string, folderID int64, now time.Time) error {
	err := withOwnerLock(ctx, e.tx, ownerID, func(ctx context.Context) error {
		folder, err := e.folders.GetByID(ctx, ownerID, folderID)
		if err != nil {
			return err
		}
		if folder.IsDeleted {
			return nil
		}

		subtree, err := e.folders.FindSubtree(ctx, ownerID, folder)
		if err != nil {
			return err
		}
		ids := domain.FolderIDs(subtree)

		if err := e.folders.MarkDeleted(ctx, ownerID, ids, now); err != nil {
			return err
		}
		if err := e.images.MarkDeletedByFolders(ctx, ownerID, ids, now); err != nil {
			return err
		}

		e.logger.Info("folder moved to trash", "owner_id", ownerID, "folder_id", folderID, "folders", len(ids))
		return nil
	})
	if err != nil {
		return err
	}

	metrics.CascadeOperations.WithLabelValues("soft_delete").Inc()
	return nil
}

// HardDelete окончательно удаляет папку в любом состоянии вместе с поддеревом
func (e *CascadeEngine) HardDelete(ctx context.Context, ownerID string, folderID int64) (PurgeStats, error) {
	res, err := e.purgeFolder(ctx, ownerID, folderID, nil)
	return res.stats(), err
}

// PermanentDeleteFolder удаляет папку, только если она в корзине
func (e *CascadeEngine) PermanentDeleteFolder(ctx context.Context, ownerID string, folderID int64) (PurgeStats, error) {
	res, err := e.purgeFolder(ctx, ownerID, folderID, func(_ context.Context, folder *domain.Folder) error {
		return requireTrashedFolder(folder)
	})
	return res.stats(), err
}

// Restore возвращает из корзины только саму папку и изображения, лежащие прямо в ней.
// Вложенные папки остаются в корзине.
func (e *CascadeEngine) Restore(ctx context.Context, ownerID string, folderID int64) (*domain.Folder, error) {
	var restored *domain.Folder
	err := withOwnerLock(ctx, e.tx, ownerID, func(ctx context.Context) error {
		folder, err := e.folders.GetByID(ctx, ownerID, folderID)
		if err != nil {
			return err
		}
		if err := requireTrashedFolder(folder); err != nil {
			return err
		}

		exists, err := e.folders.ExistsActiveSibling(ctx, ownerID, folder.ParentID, folder.Name, folder.ID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("folder %q: %w", folder.Name, domain.ErrConflict)
		}

		// изображения, удалённые по отдельности раньше папки, остаются в корзине
		var deletedAt time.Time
		if folder.DeletedAt != nil {
			deletedAt = *folder.DeletedAt
		}

		if err := e.folders.Restore(ctx, folder); err != nil {
			return err
		}
		if err := e.images.RestoreByFolder(ctx, ownerID, folder.ID, deletedAt); err != nil {
			return err
		}
		restored = folder
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.CascadeOperations.WithLabelValues("restore").Inc()
	return restored, nil
}

// RestoreImage возвращает изображение из корзины
func (e *CascadeEngine) RestoreImage(ctx context.Context, ownerID string, imageID uuid.UUID) (*domain.Image, error) {
	var restored *domain.Image
	err := withOwnerLock(ctx, e.tx, ownerID, func(ctx context.Context) error {
		image, err := e.images.GetByID(ctx, ownerID, imageID)
		if err != nil {
			return err
		}
		if err := requireTrashedImage(image); err != nil {
			return err
		}
		if err := e.images.Restore(ctx, image); err != nil {
			return err
		}
		restored = image
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.CascadeOperations.WithLabelValues("restore_image").Inc()
	return restored, nil
}

// PermanentDeleteImage удаляет изображение из корзины вместе с содержимым
func (e *CascadeEngine) PermanentDeleteImage(ctx context.Context, ownerID string, imageID uuid.UUID) error {
	return e.purgeImage(ctx, ownerID, imageID, requireTrashedImage)
}

// EmptyTrash окончательно удаляет всё содержимое корзины владельца
func (e *CascadeEngine) EmptyTrash(ctx context.Context, ownerID string) (PurgeStats, error) {
	var (
		stats    PurgeStats
		payloads []domain.Image
	)

	err := withOwnerLock(ctx, e.tx, ownerID, func(ctx context.Context) error {
		folders, err := e.folders.ListTrashed(ctx, ownerID)
		if err != nil {
			return err
		}

		purged := make(map[int64]struct{})
		for i := range folders {
			if _, done := purged[folders[i].ID]; done {
				continue
			}
			res, err := e.purgeSubtree(ctx, &folders[i])
			if err != nil {
				return err
			}
			for _, id := range res.folderIDs {
				purged[id] = struct{}{}
			}
			stats.add(res)
			payloads = append(payloads, res.payloads...)
		}

		// изображения из удалённых выше папок уже исчезли
		images, err := e.images.ListTrashed(ctx, ownerID)
		if err != nil {
			return err
		}
		for _, image := range images {
			if err := e.images.Delete(ctx, ownerID, image.ID); err != nil {
				return err
			}
			stats.Images++
			if image.HasPayload() {
				payloads = append(payloads, image)
			}
		}
		return nil
	})
	if err != nil {
		return PurgeStats{}, err
	}

	e.destroyPayloads(ctx, payloads)
	metrics.CascadeOperations.WithLabelValues("empty_trash").Inc()
	e.logger.Info("trash emptied", "owner_id", ownerID, "folders", stats.Folders, "images", stats.Images)
	return stats, nil
}

// purgeFolder удаляет папку с поддеревом, если check её пропускает.
// check вызывается внутри транзакции.
func (e *CascadeEngine) purgeFolder(
	ctx context.Context,
	ownerID string,
	folderID int64,
	check func(context.Context, *domain.Folder) error,
) (*subtreePurge, error) {
	var res *subtreePurge
	err := withOwnerLock(ctx, e.tx, ownerID, func(ctx context.Context) error {
		folder, err := e.folders.GetByID(ctx, ownerID, folderID)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(ctx, folder); err != nil {
				return err
			}
		}
		res, err = e.purgeSubtree(ctx, folder)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.destroyPayloads(ctx, res.payloads)
	metrics.CascadeOperations.WithLabelValues("hard_delete").Inc()
	e.logger.Info("folder purged",
		"owner_id", ownerID, "folder_id", folderID, "folders", len(res.folderIDs), "images", res.images)
	return res, nil
}

// purgeSubtree удаляет записи изображений, затем папок поддерева.
// Вызывается внутри транзакции.
func (e *CascadeEngine) purgeSubtree(ctx context.Context, root *domain.Folder) (*subtreePurge, error) {
	subtree, err := e.folders.FindSubtree(ctx, root.OwnerID, root)
	if err != nil {
		return nil, err
	}
	ids := domain.FolderIDs(subtree)

	images, err := e.images.ListByFolders(ctx, root.OwnerID, ids)
	if err != nil {
		return nil, err
	}

	res := &subtreePurge{folderIDs: ids, images: len(images)}
	for _, image := range images {
		if image.HasPayload() {
			res.payloads = append(res.payloads, image)
		}
	}

	if _, err := e.images.DeleteByFolders(ctx, root.OwnerID, ids); err != nil {
		return nil, err
	}
	if _, err := e.folders.DeleteByIDs(ctx, root.OwnerID, ids); err != nil {
		return nil, err
	}
	return res, nil
}

// purgeImage удаляет запись изображения и затем его содержимое
func (e *CascadeEngine) purgeImage(
	ctx context.Context,
	ownerID string,
	imageID uuid.UUID,
	check func(*domain.Image) error,
) error {
	var doomed *domain.Image
	err := withOwnerLock(ctx, e.tx, ownerID, func(ctx context.Context) error {
		image, err := e.images.GetByID(ctx, ownerID, imageID)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(image); err != nil {
				return err
			}
		}
		if err := e.images.Delete(ctx, ownerID, image.ID); err != nil {
			return err
		}
		doomed = image
		return nil
	})
	if err != nil {
		return err
	}

	if doomed.HasPayload() {
		e.destroyPayloads(ctx, []domain.Image{*doomed})
	}
	metrics.CascadeOperations.WithLabelValues("purge_image").Inc()
	return nil
}

// destroyPayloads вызывает Destroy ровно один раз на изображение.
// Ошибки только логируются: записи уже удалены.
func (e *CascadeEngine) destroyPayloads(ctx context.Context, images []domain.Image) {
	for _, image := range images {
		if !image.HasPayload() {
			continue
		}
		if err := e.objects.Destroy(ctx, image.PublicID); err != nil {
			metrics.DestroyFailures.Inc()
			e.logger.Warn("failed to destroy image payload",
				"owner_id", image.OwnerID, "image_id", image.ID, "public_id", image.PublicID, "error", err)
		}
	}
}

func (e *CascadeEngine) activeFolder(ctx context.Context, ownerID string, folderID int64) (*domain.Folder, error) {
	folder, err := e.folders.GetByID(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}
	if folder.IsDeleted {
		return nil, fmt.Errorf("folder %d is in trash: %w", folderID, domain.ErrNotFound)
	}
	return folder, nil
}

func requireTrashedFolder(folder *domain.Folder) error {
	if !folder.IsDeleted {
		return fmt.Errorf("folder %d is not in trash: %w", folder.ID, domain.ErrNotFound)
	}
	return nil
}

func requireTrashedImage(image *domain.Image) error {
	if !image.IsDeleted {
		return fmt.Errorf("image %s is not in trash: %w", image.ID, domain.ErrNotFound)
	}
	return nil
}
