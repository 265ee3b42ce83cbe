package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"imagedrive/internal/domain"
)

// Clock возвращает текущее время; подменяется в тестах
type Clock func() time.Time

type FolderService struct {
	tx      Transactor
	folders FolderStore
	images  ImageStore
	engine  *CascadeEngine
	now     Clock
	logger  *slog.Logger
}

func NewFolderService(
	tx Transactor,
	folders FolderStore,
	images ImageStore,
	engine *CascadeEngine,
	logger *slog.Logger,
) *FolderService {
	return &FolderService{
		tx:      tx,
		folders: folders,
		images:  images,
		engine:  engine,
		now:     time.Now,
		logger:  logger,
	}
}

// CreateFolder создаёт папку в корне или внутри активной папки владельца
func (s *FolderService) CreateFolder(ctx context.Context, ownerID string, name string, parentID *int64) (*domain.Folder, error) {
	name, err := domain.NormalizeName(name)
	if err != nil {
		return nil, err
	}

	folder := &domain.Folder{
		OwnerID:  ownerID,
		Name:     name,
		ParentID: parentID,
	}

	err = withOwnerLock(ctx, s.tx, ownerID, func(ctx context.Context) error {
		var parentPath *string
		if parentID != nil {
			parent, err := s.folders.GetByID(ctx, ownerID, *parentID)
			if err != nil {
				return err
			}
			if parent.IsDeleted {
				return fmt.Errorf("parent folder %d is in trash: %w", parent.ID, domain.ErrNotFound)
			}
			parentPath = &parent.Path
		}

		exists, err := s.folders.ExistsActiveSibling(ctx, ownerID, parentID, name, 0)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("folder %q: %w", name, domain.ErrConflict)
		}

		folder.Path = domain.ComputePath(name, parentPath)
		return s.folders.Create(ctx, folder)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder created", "owner_id", ownerID, "folder_id", folder.ID, "path", folder.Path)
	return folder, nil
}

// ListFolders возвращает все активные папки владельца
func (s *FolderService) ListFolders(ctx context.Context, ownerID string) ([]domain.Folder, error) {
	return s.folders.ListActive(ctx, ownerID)
}

// GetFolderContent возвращает активную папку и изображения в ней
func (s *FolderService) GetFolderContent(ctx context.Context, ownerID string, folderID int64) (*domain.FolderContent, error) {
	folder, err := s.folders.GetByID(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}
	if folder.IsDeleted {
		return nil, fmt.Errorf("folder %d is in trash: %w", folderID, domain.ErrNotFound)
	}

	images, err := s.images.ListActiveByFolder(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	return &domain.FolderContent{Folder: *folder, Images: images}, nil
}

func (s *FolderService) RenameFolder(ctx context.Context, ownerID string, folderID int64, newName string) (*domain.Folder, error) {
	return s.engine.Rename(ctx, ownerID, folderID, newName)
}

// DeleteFolder переносит папку в корзину, а с permanent удаляет её окончательно
func (s *FolderService) DeleteFolder(ctx context.Context, ownerID string, folderID int64, permanent bool) error {
	if permanent {
		_, err := s.engine.HardDelete(ctx, ownerID, folderID)
		return err
	}
	return s.engine.SoftDelete(ctx, ownerID, folderID, s.now())
}

func (s *FolderService) RestoreFolder(ctx context.Context, ownerID string, folderID int64) (*domain.Folder, error) {
	return s.engine.Restore(ctx, ownerID, folderID)
}
