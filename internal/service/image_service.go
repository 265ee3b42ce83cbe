package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"imagedrive/internal/domain"
)

// imageKeyPrefix префикс ключей изображений в хранилище
const imageKeyPrefix = "images"

type ImageService struct {
	tx      Transactor
	folders FolderStore
	images  ImageStore
	objects ObjectStore
	prober  Prober
	now     Clock
	logger  *slog.Logger
}

func NewImageService(
	tx Transactor,
	folders FolderStore,
	images ImageStore,
	objects ObjectStore,
	prober Prober,
	logger *slog.Logger,
) *ImageService {
	return &ImageService{
		tx:      tx,
		folders: folders,
		images:  images,
		objects: objects,
		prober:  prober,
		now:     time.Now,
		logger:  logger,
	}
}

// Upload сохраняет изображение в хранилище и создаёт запись о нём.
// Если запись создать не удалось, загруженный объект удаляется.
func (s *ImageService) Upload(ctx context.Context, upload domain.ImageUpload) (*domain.Image, error) {
	name, err := domain.NormalizeImageName(upload.OriginalName)
	if err != nil {
		return nil, err
	}
	if len(upload.Data) == 0 {
		return nil, fmt.Errorf("empty image %q: %w", name, domain.ErrInvalidInput)
	}

	if _, err := s.activeFolder(ctx, upload.OwnerID, upload.FolderID); err != nil {
		return nil, err
	}

	info, err := s.prober.Probe(upload.Data)
	if err != nil {
		return nil, fmt.Errorf("file %q is not a supported image: %w", name, domain.ErrInvalidInput)
	}

	id := uuid.New()
	key := fmt.Sprintf("%s/%s/%s", imageKeyPrefix, upload.OwnerID, id)

	url, publicID, err := s.objects.Store(ctx, key, upload.Data, info.MIMEType)
	if err != nil {
		s.logger.Error("failed to store image", "owner_id", upload.OwnerID, "key", key, "error", err)
		return nil, fmt.Errorf("failed to store image %s: %w", id, domain.ErrUpstream)
	}

	image := &domain.Image{
		ID:           id,
		OwnerID:      upload.OwnerID,
		FolderID:     upload.FolderID,
		Name:         name,
		OriginalName: upload.OriginalName,
		URL:          url,
		PublicID:     publicID,
		SizeBytes:    int64(len(upload.Data)),
		MIMEType:     info.MIMEType,
		Width:        info.Width,
		Height:       info.Height,
	}

	err = withOwnerLock(ctx, s.tx, upload.OwnerID, func(ctx context.Context) error {
		// папку могли удалить, пока шла загрузка
		if _, err := s.activeFolder(ctx, upload.OwnerID, upload.FolderID); err != nil {
			return err
		}
		return s.images.Create(ctx, image)
	})
	if err != nil {
		if destroyErr := s.objects.Destroy(ctx, publicID); destroyErr != nil {
			s.logger.Warn("failed to destroy orphaned payload", "public_id", publicID, "error", destroyErr)
		}
		return nil, err
	}

	s.logger.Info("image uploaded",
		"owner_id", image.OwnerID, "image_id", image.ID, "folder_id", image.FolderID, "size", image.SizeBytes)
	return image, nil
}

// ListByFolder возвращает активные изображения активной папки
func (s *ImageService) ListByFolder(ctx context.Context, ownerID string, folderID int64) ([]domain.Image, error) {
	if _, err := s.activeFolder(ctx, ownerID, folderID); err != nil {
		return nil, err
	}
	return s.images.ListActiveByFolder(ctx, ownerID, folderID)
}

func (s *ImageService) GetImage(ctx context.Context, ownerID string, imageID uuid.UUID) (*domain.Image, error) {
	image, err := s.images.GetByID(ctx, ownerID, imageID)
	if err != nil {
		return nil, err
	}
	if image.IsDeleted {
		return nil, fmt.Errorf("image %s is in trash: %w", imageID, domain.ErrNotFound)
	}
	return image, nil
}

func (s *ImageService) RenameImage(ctx context.Context, ownerID string, imageID uuid.UUID, newName string) (*domain.Image, error) {
	name, err := domain.NormalizeImageName(newName)
	if err != nil {
		return nil, err
	}

	image, err := s.GetImage(ctx, ownerID, imageID)
	if err != nil {
		return nil, err
	}
	image.Name = name
	if err := s.images.Rename(ctx, image); err != nil {
		return nil, err
	}
	return image, nil
}

// TrashImage переносит одно изображение в корзину; повторный вызов ничего не меняет
func (s *ImageService) TrashImage(ctx context.Context, ownerID string, imageID uuid.UUID) error {
	image, err := s.images.GetByID(ctx, ownerID, imageID)
	if err != nil {
		return err
	}
	if image.IsDeleted {
		return nil
	}
	return s.images.MarkDeleted(ctx, ownerID, imageID, s.now())
}

func (s *ImageService) activeFolder(ctx context.Context, ownerID string, folderID int64) (*domain.Folder, error) {
	folder, err := s.folders.GetByID(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}
	if folder.IsDeleted {
		return nil, fmt.Errorf("folder %d is in trash: %w", folderID, domain.ErrNotFound)
	}
	return folder, nil
}
