package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"imagedrive/internal/domain"
)

const imageColumns = `id, owner_id, folder_id, name, original_name, url, public_id, size_bytes,
            mime_type, width, height, is_deleted, deleted_at, created_at, updated_at`

type ImageRepository struct {
	db *sqlx.DB
}

func NewImageRepository(db *sqlx.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) Create(ctx context.Context, image *domain.Image) error {
	query := `
        INSERT INTO images (id, owner_id, folder_id, name, original_name, url, public_id,
                            size_bytes, mime_type, width, height)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING created_at, updated_at`

	err := conn(ctx, r.db).QueryRowxContext(
		ctx,
		query,
		image.ID,
		image.OwnerID,
		image.FolderID,
		image.Name,
		image.OriginalName,
		image.URL,
		image.PublicID,
		image.SizeBytes,
		image.MIMEType,
		image.Width,
		image.Height,
	).Scan(&image.CreatedAt, &image.UpdatedAt)
	if err != nil {
		return wrapErr(err, "create image %s", image.ID)
	}
	return nil
}

// GetByID возвращает изображение владельца в любом состоянии корзины
func (r *ImageRepository) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1 AND owner_id = $2`

	var image domain.Image
	if err := conn(ctx, r.db).GetContext(ctx, &image, query, id, ownerID); err != nil {
		return nil, wrapErr(err, "get image %s", id)
	}
	return &image, nil
}

func (r *ImageRepository) ListActiveByFolder(ctx context.Context, ownerID string, folderID int64) ([]domain.Image, error) {
	query := `
        SELECT ` + imageColumns + `
        FROM images
        WHERE owner_id = $1 AND folder_id = $2 AND is_deleted = false
        ORDER BY name`

	images := []domain.Image{}
	if err := conn(ctx, r.db).SelectContext(ctx, &images, query, ownerID, folderID); err != nil {
		return nil, wrapErr(err, "list images of folder %d", folderID)
	}
	return images, nil
}

func (r *ImageRepository) ListTrashed(ctx context.Context, ownerID string) ([]domain.Image, error) {
	query := `
        SELECT ` + imageColumns + `
        FROM images
        WHERE owner_id = $1 AND is_deleted = true
        ORDER BY deleted_at DESC, name`

	images := []domain.Image{}
	if err := conn(ctx, r.db).SelectContext(ctx, &images, query, ownerID); err != nil {
		return nil, wrapErr(err, "list trashed images of %s", ownerID)
	}
	return images, nil
}

// ListByFolders возвращает изображения указанных папок в любом состоянии
func (r *ImageRepository) ListByFolders(ctx context.Context, ownerID string, folderIDs []int64) ([]domain.Image, error) {
	images := []domain.Image{}
	if len(folderIDs) == 0 {
		return images, nil
	}
	query := `
        SELECT ` + imageColumns + `
        FROM images
        WHERE owner_id = $1 AND folder_id = ANY($2)
        ORDER BY folder_id, name`

	if err := conn(ctx, r.db).SelectContext(ctx, &images, query, ownerID, pq.Array(folderIDs)); err != nil {
		return nil, wrapErr(err, "list images of %d folders", len(folderIDs))
	}
	return images, nil
}

func (r *ImageRepository) Rename(ctx context.Context, image *domain.Image) error {
	query := `
        UPDATE images
        SET name = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2 AND owner_id = $3 AND is_deleted = false
        RETURNING updated_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, query, image.Name, image.ID, image.OwnerID).Scan(&image.UpdatedAt)
	if err != nil {
		return wrapErr(err, "rename image %s", image.ID)
	}
	return nil
}

func (r *ImageRepository) MarkDeleted(ctx context.Context, ownerID string, id uuid.UUID, at time.Time) error {
	query := `
        UPDATE images
        SET is_deleted = true, deleted_at = $3, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND owner_id = $2 AND is_deleted = false`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, id, ownerID, at); err != nil {
		return wrapErr(err, "move image %s to trash", id)
	}
	return nil
}

// MarkDeletedByFolders помечает удалёнными все активные изображения в папках
func (r *ImageRepository) MarkDeletedByFolders(ctx context.Context, ownerID string, folderIDs []int64, at time.Time) error {
	if len(folderIDs) == 0 {
		return nil
	}
	query := `
        UPDATE images
        SET is_deleted = true, deleted_at = $3, updated_at = CURRENT_TIMESTAMP
        WHERE owner_id = $1 AND folder_id = ANY($2) AND is_deleted = false`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, ownerID, pq.Array(folderIDs), at); err != nil {
		return wrapErr(err, "move images of %d folders to trash", len(folderIDs))
	}
	return nil
}

func (r *ImageRepository) Restore(ctx context.Context, image *domain.Image) error {
	query := `
        UPDATE images
        SET is_deleted = false, deleted_at = NULL, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND owner_id = $2 AND is_deleted = true
        RETURNING updated_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, query, image.ID, image.OwnerID).Scan(&image.UpdatedAt)
	if err != nil {
		return wrapErr(err, "restore image %s", image.ID)
	}
	image.IsDeleted = false
	image.DeletedAt = nil
	return nil
}

// RestoreByFolder восстанавливает изображения, лежащие прямо в папке и удалённые
// вместе с ней: их deleted_at совпадает с моментом удаления папки
func (r *ImageRepository) RestoreByFolder(ctx context.Context, ownerID string, folderID int64, deletedAt time.Time) error {
	query := `
        UPDATE images
        SET is_deleted = false, deleted_at = NULL, updated_at = CURRENT_TIMESTAMP
        WHERE owner_id = $1 AND folder_id = $2 AND is_deleted = true AND deleted_at = $3`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, ownerID, folderID, deletedAt); err != nil {
		return wrapErr(err, "restore images of folder %d", folderID)
	}
	return nil
}

func (r *ImageRepository) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM images WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return wrapErr(err, "delete image %s", id)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return wrapErr(sql.ErrNoRows, "delete image %s", id)
	}
	return nil
}

func (r *ImageRepository) DeleteByFolders(ctx context.Context, ownerID string, folderIDs []int64) (int64, error) {
	if len(folderIDs) == 0 {
		return 0, nil
	}
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM images WHERE owner_id = $1 AND folder_id = ANY($2)`,
		ownerID, pq.Array(folderIDs),
	)
	if err != nil {
		return 0, wrapErr(err, "delete images of %d folders", len(folderIDs))
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
