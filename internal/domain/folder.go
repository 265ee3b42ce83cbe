package domain

import "time"

// Folder описывает папку пользователя. Path хранит материализованный путь
// из имён всех предков, включая имя самой папки.
type Folder struct {
	ID        int64      `json:"id" db:"id"`
	OwnerID   string     `json:"owner_id" db:"owner_id"`
	Name      string     `json:"name" db:"name"`
	ParentID  *int64     `json:"parent_folder_id,omitempty" db:"parent_id"`
	Path      string     `json:"path" db:"path"`
	IsDeleted bool       `json:"is_deleted" db:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// IsRoot сообщает, что у папки нет родителя
func (f *Folder) IsRoot() bool {
	return f.ParentID == nil
}

type FolderContent struct {
	Folder Folder  `json:"folder"`
	Images []Image `json:"images"`
}

// FolderIDs собирает идентификаторы папок в том же порядке
func FolderIDs(folders []Folder) []int64 {
	ids := make([]int64, 0, len(folders))
	for _, f := range folders {
		ids = append(ids, f.ID)
	}
	return ids
}
