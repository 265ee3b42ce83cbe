package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagedrive/internal/domain"
)

var folderRowColumns = []string{
	"id", "owner_id", "name", "parent_id", "path", "is_deleted", "deleted_at", "created_at", "updated_at",
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func TestFolderRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFolderRepository(db)
	now := time.Now()
	parentID := int64(1)

	mock.ExpectQuery(`INSERT INTO folders \(owner_id, name, parent_id, path\)`).
		WithArgs("owner-1", "Docs", sqlmock.AnyArg(), "A/Docs").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(2, now, now))

	folder := &domain.Folder{OwnerID: "owner-1", Name: "Docs", ParentID: &parentID, Path: "A/Docs"}
	err := repo.Create(context.Background(), folder)

	require.NoError(t, err)
	assert.Equal(t, int64(2), folder.ID)
	assert.Equal(t, now, folder.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRepository_Create_UniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFolderRepository(db)

	mock.ExpectQuery(`INSERT INTO folders`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

	err := repo.Create(context.Background(), &domain.Folder{OwnerID: "owner-1", Name: "Docs", Path: "Docs"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFolderRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM folders WHERE id = \$1 AND owner_id = \$2`).
		WithArgs(int64(9), "owner-1").
		WillReturnRows(sqlmock.NewRows(folderRowColumns))

	folder, err := repo.GetByID(context.Background(), "owner-1", 9)

	assert.Nil(t, folder)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRepository_ListActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFolderRepository(db)
	now := time.Now()

	mock.ExpectQuery(`FROM folders\s+WHERE owner_id = \$1 AND is_deleted = false\s+ORDER BY path`).
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows(folderRowColumns).
			AddRow(1, "owner-1", "A", nil, "A", false, nil, now, now).
			AddRow(2, "owner-1", "Docs", 1, "A/Docs", false, nil, now, now))

	folders, err := repo.ListActive(context.Background(), "owner-1")

	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Nil(t, folders[0].ParentID)
	require.NotNil(t, folders[1].ParentID)
	assert.Equal(t, int64(1), *folders[1].ParentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRepository_FindSubtree(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFolderRepository(db)
	now := time.Now()
	root := &domain.Folder{ID: 1, OwnerID: "owner-1", Name: "A", Path: "A"}

	mock.ExpectQuery(`path = \$2 OR path LIKE \$3 ESCAPE`).
		WithArgs("owner-1", "A", "A/%").
		WillReturnRows(sqlmock.NewRows(folderRowColumns).
			AddRow(1, "owner-1", "A", nil, "A", false, nil, now, now).
			AddRow(4, "owner-1", "A", nil, "A", true, now, now, now).
			AddRow(2, "owner-1", "Docs", 1, "A/Docs", false, nil, now, now).
			AddRow(5, "owner-1", "Old", 4, "A/Old", true, now, now, now))

	subtree, err := repo.FindSubtree(context.Background(), "owner-1", root)

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, domain.FolderIDs(subtree))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRepository_ExistsActiveSibling(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFolderRepository(db)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("owner-1", nil, "Docs", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsActiveSibling(context.Background(), "owner-1", nil, "Docs", 0)

	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRepository_MarkDeleted(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFolderRepository(db)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE folders\s+SET is_deleted = true`).
		WithArgs("owner-1", sqlmock.AnyArg(), at).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.MarkDeleted(context.Background(), "owner-1", []int64{1, 2}, at))
	// пустой список не должен ходить в базу
	require.NoError(t, repo.MarkDeleted(context.Background(), "owner-1", nil, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRepository_Restore_NotTrashed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFolderRepository(db)

	mock.ExpectQuery(`UPDATE folders\s+SET is_deleted = false`).
		WithArgs(int64(3), "owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	err := repo.Restore(context.Background(), &domain.Folder{ID: 3, OwnerID: "owner-1"})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRepository_DeleteByIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFolderRepository(db)

	mock.ExpectExec(`DELETE FROM folders WHERE owner_id = \$1 AND id = ANY\(\$2\)`).
		WithArgs("owner-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	rows, err := repo.DeleteByIDs(context.Background(), "owner-1", []int64{1, 2, 3})

	require.NoError(t, err)
	assert.Equal(t, int64(3), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
