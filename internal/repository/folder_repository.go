package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"imagedrive/internal/domain"
)

const folderColumns = `id, owner_id, name, parent_id, path, is_deleted, deleted_at, created_at, updated_at`

type FolderRepository struct {
	db *sqlx.DB
}

func NewFolderRepository(db *sqlx.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

// Create вставляет папку; путь должен быть уже посчитан
func (r *FolderRepository) Create(ctx context.Context, folder *domain.Folder) error {
	query := `
        INSERT INTO folders (owner_id, name, parent_id, path)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	err := conn(ctx, r.db).QueryRowxContext(
		ctx,
		query,
		folder.OwnerID,
		folder.Name,
		folder.ParentID,
		folder.Path,
	).Scan(&folder.ID, &folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		return wrapErr(err, "create folder %q", folder.Name)
	}
	return nil
}

// GetByID возвращает папку владельца в любом состоянии корзины
func (r *FolderRepository) GetByID(ctx context.Context, ownerID string, id int64) (*domain.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1 AND owner_id = $2`

	var folder domain.Folder
	if err := conn(ctx, r.db).GetContext(ctx, &folder, query, id, ownerID); err != nil {
		return nil, wrapErr(err, "get folder %d", id)
	}
	return &folder, nil
}

// ListActive возвращает все неудалённые папки владельца, упорядоченные по пути
func (r *FolderRepository) ListActive(ctx context.Context, ownerID string) ([]domain.Folder, error) {
	query := `
        SELECT ` + folderColumns + `
        FROM folders
        WHERE owner_id = $1 AND is_deleted = false
        ORDER BY path`

	folders := []domain.Folder{}
	if err := conn(ctx, r.db).SelectContext(ctx, &folders, query, ownerID); err != nil {
		return nil, wrapErr(err, "list folders of %s", ownerID)
	}
	return folders, nil
}

func (r *FolderRepository) ListTrashed(ctx context.Context, ownerID string) ([]domain.Folder, error) {
	query := `
        SELECT ` + folderColumns + `
        FROM folders
        WHERE owner_id = $1 AND is_deleted = true
        ORDER BY deleted_at DESC, path`

	folders := []domain.Folder{}
	if err := conn(ctx, r.db).SelectContext(ctx, &folders, query, ownerID); err != nil {
		return nil, wrapErr(err, "list trashed folders of %s", ownerID)
	}
	return folders, nil
}

// FindSubtree возвращает root и всех его потомков в любом состоянии.
// Выборка по префиксу пути дополнительно сверяется по цепочке parent_id.
func (r *FolderRepository) FindSubtree(ctx context.Context, ownerID string, root *domain.Folder) ([]domain.Folder, error) {
	query := `
        SELECT ` + folderColumns + `
        FROM folders
        WHERE owner_id = $1 AND (path = $2 OR path LIKE $3 ESCAPE '\')
        ORDER BY path`

	var candidates []domain.Folder
	err := conn(ctx, r.db).SelectContext(ctx, &candidates, query, ownerID, root.Path, domain.LikePrefixPattern(root.Path))
	if err != nil {
		return nil, wrapErr(err, "find subtree of folder %d", root.ID)
	}
	return domain.SubtreeOf(*root, candidates), nil
}

// ExistsActiveSibling проверяет, есть ли у родителя неудалённая папка с таким именем
func (r *FolderRepository) ExistsActiveSibling(ctx context.Context, ownerID string, parentID *int64, name string, excludeID int64) (bool, error) {
	query := `
        SELECT EXISTS(
            SELECT 1 FROM folders
            WHERE owner_id = $1
              AND parent_id IS NOT DISTINCT FROM $2
              AND name = $3
              AND id != $4
              AND is_deleted = false
        )`

	var exists bool
	if err := conn(ctx, r.db).GetContext(ctx, &exists, query, ownerID, parentID, name, excludeID); err != nil {
		return false, wrapErr(err, "check folder existence")
	}
	return exists, nil
}

func (r *FolderRepository) UpdateNameAndPath(ctx context.Context, folder *domain.Folder) error {
	query := `
        UPDATE folders
        SET name = $1, path = $2, updated_at = CURRENT_TIMESTAMP
        WHERE id = $3 AND owner_id = $4
        RETURNING updated_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, query, folder.Name, folder.Path, folder.ID, folder.OwnerID).
		Scan(&folder.UpdatedAt)
	if err != nil {
		return wrapErr(err, "rename folder %d", folder.ID)
	}
	return nil
}

func (r *FolderRepository) UpdatePath(ctx context.Context, ownerID string, id int64, path string) error {
	query := `
        UPDATE folders
        SET path = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2 AND owner_id = $3`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, path, id, ownerID); err != nil {
		return wrapErr(err, "update path of folder %d", id)
	}
	return nil
}

// MarkDeleted помечает папки удалёнными; уже удалённые не трогаются
func (r *FolderRepository) MarkDeleted(ctx context.Context, ownerID string, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
        UPDATE folders
        SET is_deleted = true, deleted_at = $3, updated_at = CURRENT_TIMESTAMP
        WHERE owner_id = $1 AND id = ANY($2) AND is_deleted = false`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, ownerID, pq.Array(ids), at); err != nil {
		return wrapErr(err, "move %d folders to trash", len(ids))
	}
	return nil
}

// Restore снимает пометку удаления только с одной папки
func (r *FolderRepository) Restore(ctx context.Context, folder *domain.Folder) error {
	query := `
        UPDATE folders
        SET is_deleted = false, deleted_at = NULL, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND owner_id = $2 AND is_deleted = true
        RETURNING updated_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, query, folder.ID, folder.OwnerID).Scan(&folder.UpdatedAt)
	if err != nil {
		return wrapErr(err, "restore folder %d", folder.ID)
	}
	folder.IsDeleted = false
	folder.DeletedAt = nil
	return nil
}

func (r *FolderRepository) DeleteByIDs(ctx context.Context, ownerID string, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM folders WHERE owner_id = $1 AND id = ANY($2)`,
		ownerID, pq.Array(ids),
	)
	if err != nil {
		return 0, wrapErr(err, "delete %d folders", len(ids))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}
