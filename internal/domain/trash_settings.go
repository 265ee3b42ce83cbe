package domain

import (
	"fmt"
	"time"
)

type ItemType string

const (
	ItemTypeFolder ItemType = "folder"
	ItemTypeImage  ItemType = "image"
)

// ParseItemType разбирает тип элемента корзины из запроса.
// Сравнение точное, как и в валидации запроса
func ParseItemType(s string) (ItemType, error) {
	switch ItemType(s) {
	case ItemTypeFolder:
		return ItemTypeFolder, nil
	case ItemTypeImage:
		return ItemTypeImage, nil
	}
	return "", fmt.Errorf("item type %q: %w", s, ErrInvalidInput)
}

// TrashSettings представляет настройки корзины для пользователя
type TrashSettings struct {
	OwnerID          string    `json:"owner_id" db:"owner_id"`
	RetentionSeconds int64     `json:"-" db:"retention_seconds"`
	RetentionPeriod  string    `json:"retention_period" db:"-"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

func (s *TrashSettings) Retention() time.Duration {
	return time.Duration(s.RetentionSeconds) * time.Second
}

type TrashedFolder struct {
	Folder
	ExpiresAt time.Time `json:"expires_at"`
}

type TrashedImage struct {
	Image
	ExpiresAt time.Time `json:"expires_at"`
}

// RestoredItem описывает элемент, возвращённый из корзины
type RestoredItem struct {
	ItemType ItemType `json:"item_type"`
	Folder   *Folder  `json:"folder,omitempty"`
	Image    *Image   `json:"image,omitempty"`
}

// TrashContents содержимое корзины: папки и изображения
type TrashContents struct {
	Folders []TrashedFolder `json:"folders"`
	Images  []TrashedImage  `json:"images"`
}

// ExpiresAt считает момент окончательного удаления элемента
func ExpiresAt(deletedAt *time.Time, retention time.Duration) time.Time {
	if deletedAt == nil {
		return time.Time{}
	}
	return deletedAt.Add(retention)
}
