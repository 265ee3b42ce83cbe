package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"imagedrive/internal/domain"
)

type TrashRepository struct {
	db *sqlx.DB
}

func NewTrashRepository(db *sqlx.DB) *TrashRepository {
	return &TrashRepository{db: db}
}

// GetSettings получает настройки корзины; если их нет, возвращает defaultRetention
func (r *TrashRepository) GetSettings(ctx context.Context, ownerID string, defaultRetention time.Duration) (*domain.TrashSettings, error) {
	query := `SELECT owner_id, retention_seconds, updated_at FROM trash_settings WHERE owner_id = $1`

	var settings domain.TrashSettings
	err := conn(ctx, r.db).GetContext(ctx, &settings, query, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.TrashSettings{
			OwnerID:          ownerID,
			RetentionSeconds: int64(defaultRetention / time.Second),
		}, nil
	}
	if err != nil {
		return nil, wrapErr(err, "get trash settings of %s", ownerID)
	}
	return &settings, nil
}

// UpsertSettings сохраняет период хранения для владельца
func (r *TrashRepository) UpsertSettings(ctx context.Context, settings *domain.TrashSettings) error {
	query := `
        INSERT INTO trash_settings (owner_id, retention_seconds)
        VALUES ($1, $2)
        ON CONFLICT (owner_id) DO UPDATE
        SET retention_seconds = EXCLUDED.retention_seconds, updated_at = CURRENT_TIMESTAMP
        RETURNING updated_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, query, settings.OwnerID, settings.RetentionSeconds).
		Scan(&settings.UpdatedAt)
	if err != nil {
		return wrapErr(err, "update trash settings of %s", settings.OwnerID)
	}
	return nil
}

// ExpiredFolders находит папки всех владельцев, срок хранения которых в корзине истёк.
// Папки одного владельца идут подряд, предки раньше потомков.
func (r *TrashRepository) ExpiredFolders(ctx context.Context, now time.Time, defaultRetention time.Duration) ([]domain.Folder, error) {
	query := `
        SELECT f.id, f.owner_id, f.name, f.parent_id, f.path, f.is_deleted, f.deleted_at,
               f.created_at, f.updated_at
        FROM folders f
        LEFT JOIN trash_settings ts ON ts.owner_id = f.owner_id
        WHERE f.is_deleted = true
          AND f.deleted_at + COALESCE(ts.retention_seconds, $2) * interval '1 second' < $1
        ORDER BY f.owner_id, f.path`

	folders := []domain.Folder{}
	err := conn(ctx, r.db).SelectContext(ctx, &folders, query, now, int64(defaultRetention/time.Second))
	if err != nil {
		return nil, wrapErr(err, "find expired folders")
	}
	return folders, nil
}

// ExpiredImages находит просроченные изображения, удалённые по отдельности:
// изображения внутри удалённой папки уходят вместе с ней
func (r *TrashRepository) ExpiredImages(ctx context.Context, now time.Time, defaultRetention time.Duration) ([]domain.Image, error) {
	query := `
        SELECT i.id, i.owner_id, i.folder_id, i.name, i.original_name, i.url, i.public_id,
               i.size_bytes, i.mime_type, i.width, i.height, i.is_deleted, i.deleted_at,
               i.created_at, i.updated_at
        FROM images i
        JOIN folders f ON f.id = i.folder_id
        LEFT JOIN trash_settings ts ON ts.owner_id = i.owner_id
        WHERE i.is_deleted = true
          AND f.is_deleted = false
          AND i.deleted_at + COALESCE(ts.retention_seconds, $2) * interval '1 second' < $1
        ORDER BY i.owner_id, i.deleted_at`

	images := []domain.Image{}
	err := conn(ctx, r.db).SelectContext(ctx, &images, query, now, int64(defaultRetention/time.Second))
	if err != nil {
		return nil, wrapErr(err, "find expired images")
	}
	return images, nil
}
