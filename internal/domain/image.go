package domain

import (
	"time"

	"github.com/google/uuid"
)

type Image struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	OwnerID      string     `json:"owner_id" db:"owner_id"`
	FolderID     int64      `json:"folder_id" db:"folder_id"`
	Name         string     `json:"name" db:"name"`
	OriginalName string     `json:"original_name" db:"original_name"`
	URL          string     `json:"url" db:"url"`
	PublicID     string     `json:"public_id" db:"public_id"`
	SizeBytes    int64      `json:"size_bytes" db:"size_bytes"`
	MIMEType     string     `json:"mime_type" db:"mime_type"`
	Width        int        `json:"width" db:"width"`
	Height       int        `json:"height" db:"height"`
	IsDeleted    bool       `json:"is_deleted" db:"is_deleted"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// HasPayload сообщает, что у изображения есть объект в хранилище
func (i *Image) HasPayload() bool {
	return i.PublicID != ""
}

type ImageUpload struct {
	OwnerID      string
	FolderID     int64
	OriginalName string
	Data         []byte
}

// ImageInfo результат разбора загруженного файла
type ImageInfo struct {
	MIMEType string
	Width    int
	Height   int
}
