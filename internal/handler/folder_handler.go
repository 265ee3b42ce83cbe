package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"imagedrive/internal/domain"
)

type FolderService interface {
	CreateFolder(ctx context.Context, ownerID string, name string, parentID *int64) (*domain.Folder, error)
	ListFolders(ctx context.Context, ownerID string) ([]domain.Folder, error)
	GetFolderContent(ctx context.Context, ownerID string, folderID int64) (*domain.FolderContent, error)
	RenameFolder(ctx context.Context, ownerID string, folderID int64, newName string) (*domain.Folder, error)
	DeleteFolder(ctx context.Context, ownerID string, folderID int64, permanent bool) error
	RestoreFolder(ctx context.Context, ownerID string, folderID int64) (*domain.Folder, error)
}

type FolderHandler struct {
	folderService FolderService
	logger        *slog.Logger
}

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_folder_id,omitempty"`
}

func (r *createFolderRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, domain.MaxNameLength)),
		validation.Field(&r.ParentID, validation.NilOrNotEmpty, validation.Min(int64(1))),
	)
}

type renameRequest struct {
	NewName string `json:"new_name"`
}

func (r *renameRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.NewName, validation.Required, validation.Length(1, domain.MaxNameLength)),
	)
}

func NewFolderHandler(folderService FolderService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{
		folderService: folderService,
		logger:        logger,
	}
}

func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req createFolderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	folder, err := h.folderService.CreateFolder(r.Context(), userID, req.Name, req.ParentID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, folder)
}

// ListFolders возвращает все активные папки пользователя
func (h *FolderHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	folders, err := h.folderService.ListFolders(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if folders == nil {
		folders = []domain.Folder{}
	}

	writeJSON(w, http.StatusOK, folders)
}

func (h *FolderHandler) GetFolderContent(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	folderID, err := folderIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	content, err := h.folderService.GetFolderContent(r.Context(), userID, folderID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if content.Images == nil {
		content.Images = []domain.Image{}
	}

	writeJSON(w, http.StatusOK, content)
}

// RenameFolder обрабатывает запрос на переименование папки
func (h *FolderHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	folderID, err := folderIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	folder, err := h.folderService.RenameFolder(r.Context(), userID, folderID, req.NewName)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, folder)
}

// DeleteFolder перемещает папку в корзину, а с ?permanent=true удаляет окончательно
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	folderID, err := folderIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	permanent := false
	if raw := r.URL.Query().Get("permanent"); raw != "" {
		permanent, err = strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid permanent flag"})
			return
		}
	}

	if err := h.folderService.DeleteFolder(r.Context(), userID, folderID, permanent); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FolderHandler) RestoreFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	folderID, err := folderIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	folder, err := h.folderService.RestoreFolder(r.Context(), userID, folderID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, folder)
}
