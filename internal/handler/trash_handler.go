package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"imagedrive/internal/domain"
	"imagedrive/internal/service"
)

type TrashService interface {
	ListTrash(ctx context.Context, ownerID string) (*domain.TrashContents, error)
	RestoreItem(ctx context.Context, ownerID string, itemType string, itemID string) (*domain.RestoredItem, error)
	PermanentDelete(ctx context.Context, ownerID string, itemType string, itemID string) error
	EmptyTrash(ctx context.Context, ownerID string) (service.PurgeStats, error)
	GetSettings(ctx context.Context, ownerID string) (*domain.TrashSettings, error)
	UpdateRetentionPeriod(ctx context.Context, ownerID string, period string) (*domain.TrashSettings, error)
}

type TrashHandler struct {
	trashService TrashService
	logger       *slog.Logger
}

func NewTrashHandler(trashService TrashService, logger *slog.Logger) *TrashHandler {
	return &TrashHandler{trashService: trashService, logger: logger}
}

// itemID принимает идентификатор и строкой, и числом: у папок он числовой
type itemID string

func (id *itemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = itemID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("item_id must be a string or a number")
	}
	*id = itemID(n.String())
	return nil
}

type trashItemRequest struct {
	ItemType string `json:"item_type"`
	ItemID   itemID `json:"item_id"`
}

func (r *trashItemRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ItemType, validation.Required,
			validation.In(string(domain.ItemTypeFolder), string(domain.ItemTypeImage))),
		validation.Field(&r.ItemID, validation.Required),
	)
}

type settingsRequest struct {
	RetentionPeriod string `json:"retention_period"`
}

func (r *settingsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RetentionPeriod, validation.Required),
	)
}

type emptyTrashResponse struct {
	FoldersDeleted int `json:"folders_deleted"`
	ImagesDeleted  int `json:"images_deleted"`
}

// GetTrashItems обрабатывает запрос на получение содержимого корзины
func (h *TrashHandler) GetTrashItems(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items, err := h.trashService.ListTrash(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if items.Folders == nil {
		items.Folders = []domain.TrashedFolder{}
	}
	if items.Images == nil {
		items.Images = []domain.TrashedImage{}
	}

	writeJSON(w, http.StatusOK, items)
}

// EmptyTrash обрабатывает запрос на очистку корзины
func (h *TrashHandler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	stats, err := h.trashService.EmptyTrash(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, emptyTrashResponse{
		FoldersDeleted: stats.Folders,
		ImagesDeleted:  stats.Images,
	})
}

// RestoreItem обрабатывает запрос на восстановление элемента из корзины
func (h *TrashHandler) RestoreItem(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req trashItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	item, err := h.trashService.RestoreItem(r.Context(), userID, req.ItemType, string(req.ItemID))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// DeletePermanently обрабатывает запрос на окончательное удаление элемента
func (h *TrashHandler) DeletePermanently(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req trashItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.trashService.PermanentDelete(r.Context(), userID, req.ItemType, string(req.ItemID)); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateSettings обрабатывает запрос на обновление настроек корзины
func (h *TrashHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	settings, err := h.trashService.UpdateRetentionPeriod(r.Context(), userID, req.RetentionPeriod)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// GetSettings обрабатывает запрос на получение настроек корзины
func (h *TrashHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	settings, err := h.trashService.GetSettings(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}
