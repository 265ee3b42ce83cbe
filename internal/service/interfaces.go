package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"imagedrive/internal/domain"
)

// FolderStore хранит папки; реализуется repository.FolderRepository
type FolderStore interface {
	Create(ctx context.Context, folder *domain.Folder) error
	GetByID(ctx context.Context, ownerID string, id int64) (*domain.Folder, error)
	ListActive(ctx context.Context, ownerID string) ([]domain.Folder, error)
	ListTrashed(ctx context.Context, ownerID string) ([]domain.Folder, error)
	FindSubtree(ctx context.Context, ownerID string, root *domain.Folder) ([]domain.Folder, error)
	ExistsActiveSibling(ctx context.Context, ownerID string, parentID *int64, name string, excludeID int64) (bool, error)
	UpdateNameAndPath(ctx context.Context, folder *domain.Folder) error
	UpdatePath(ctx context.Context, ownerID string, id int64, path string) error
	MarkDeleted(ctx context.Context, ownerID string, ids []int64, at time.Time) error
	Restore(ctx context.Context, folder *domain.Folder) error
	DeleteByIDs(ctx context.Context, ownerID string, ids []int64) (int64, error)
}

// ImageStore хранилище записей об изображениях
type ImageStore interface {
	Create(ctx context.Context, image *domain.Image) error
	GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Image, error)
	ListActiveByFolder(ctx context.Context, ownerID string, folderID int64) ([]domain.Image, error)
	ListTrashed(ctx context.Context, ownerID string) ([]domain.Image, error)
	ListByFolders(ctx context.Context, ownerID string, folderIDs []int64) ([]domain.Image, error)
	Rename(ctx context.Context, image *domain.Image) error
	MarkDeleted(ctx context.Context, ownerID string, id uuid.UUID, at time.Time) error
	MarkDeletedByFolders(ctx context.Context, ownerID string, folderIDs []int64, at time.Time) error
	Restore(ctx context.Context, image *domain.Image) error
	RestoreByFolder(ctx context.Context, ownerID string, folderID int64, deletedAt time.Time) error
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error
	DeleteByFolders(ctx context.Context, ownerID string, folderIDs []int64) (int64, error)
}

// TrashStore настройки корзины и поиск просроченных элементов
type TrashStore interface {
	GetSettings(ctx context.Context, ownerID string, defaultRetention time.Duration) (*domain.TrashSettings, error)
	UpsertSettings(ctx context.Context, settings *domain.TrashSettings) error
	ExpiredFolders(ctx context.Context, now time.Time, defaultRetention time.Duration) ([]domain.Folder, error)
	ExpiredImages(ctx context.Context, now time.Time, defaultRetention time.Duration) ([]domain.Image, error)
}

// Transactor выполняет fn в транзакции и умеет брать блокировку владельца внутри неё
type Transactor interface {
	ExecTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockOwner(ctx context.Context, ownerID string) error
}

// ObjectStore хранит содержимое изображений; реализуется s3.Client
type ObjectStore interface {
	Store(ctx context.Context, key string, data []byte, contentType string) (url string, publicID string, err error)
	Destroy(ctx context.Context, publicID string) error
}

// Prober определяет тип и размеры изображения; реализуется preview.Prober
type Prober interface {
	Probe(data []byte) (domain.ImageInfo, error)
}

// withOwnerLock выполняет fn в транзакции под блокировкой владельца
func withOwnerLock(ctx context.Context, tx Transactor, ownerID string, fn func(ctx context.Context) error) error {
	return tx.ExecTx(ctx, func(ctx context.Context) error {
		if err := tx.LockOwner(ctx, ownerID); err != nil {
			return err
		}
		return fn(ctx)
	})
}
