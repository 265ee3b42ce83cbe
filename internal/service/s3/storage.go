package s3

import "context"

// Storage определяет операции с хранилищем, нужные сервису изображений
type Storage interface {
	// Store сохраняет объект и возвращает его публичный URL и ключ
	Store(ctx context.Context, key string, data []byte, contentType string) (url string, publicID string, err error)
	// Destroy удаляет объект; отсутствие объекта не считается ошибкой
	Destroy(ctx context.Context, publicID string) error
}

var _ Storage = (*Client)(nil)
