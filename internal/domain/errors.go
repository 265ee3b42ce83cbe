package domain

import "errors"

var (
	// ErrNotFound: сущность отсутствует, принадлежит другому владельцу
	// или находится в неподходящем состоянии корзины
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUpstream        = errors.New("upstream failure")
	ErrUnauthenticated = errors.New("unauthenticated")
)
