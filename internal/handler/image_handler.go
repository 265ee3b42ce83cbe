package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"imagedrive/internal/domain"
)

type ImageService interface {
	Upload(ctx context.Context, upload domain.ImageUpload) (*domain.Image, error)
	ListByFolder(ctx context.Context, ownerID string, folderID int64) ([]domain.Image, error)
	GetImage(ctx context.Context, ownerID string, imageID uuid.UUID) (*domain.Image, error)
	RenameImage(ctx context.Context, ownerID string, imageID uuid.UUID, newName string) (*domain.Image, error)
	TrashImage(ctx context.Context, ownerID string, imageID uuid.UUID) error
}

type ImageHandler struct {
	imageService   ImageService
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewImageHandler(imageService ImageService, maxUploadBytes int64, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{
		imageService:   imageService,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// UploadImage принимает multipart-форму с полем file
func (h *ImageHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
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

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "file too large"})
			return
		}
		writeError(w, h.logger, fmt.Errorf("invalid multipart form: %w", domain.ErrInvalidInput))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.logger, fmt.Errorf("file field is required: %w", domain.ErrInvalidInput))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, h.logger, fmt.Errorf("failed to read file: %w", err))
		return
	}

	image, err := h.imageService.Upload(r.Context(), domain.ImageUpload{
		OwnerID:      userID,
		FolderID:     folderID,
		OriginalName: header.Filename,
		Data:         data,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, image)
}

func (h *ImageHandler) ListImages(w http.ResponseWriter, r *http.Request) {
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

	images, err := h.imageService.ListByFolder(r.Context(), userID, folderID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if images == nil {
		images = []domain.Image{}
	}

	writeJSON(w, http.StatusOK, images)
}

func (h *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	userID, imageID, err := h.imageRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	image, err := h.imageService.GetImage(r.Context(), userID, imageID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, image)
}

func (h *ImageHandler) RenameImage(w http.ResponseWriter, r *http.Request) {
	userID, imageID, err := h.imageRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	image, err := h.imageService.RenameImage(r.Context(), userID, imageID, req.NewName)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, image)
}

// TrashImage перемещает отдельное изображение в корзину
func (h *ImageHandler) TrashImage(w http.ResponseWriter, r *http.Request) {
	userID, imageID, err := h.imageRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.imageService.TrashImage(r.Context(), userID, imageID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ImageHandler) imageRequest(r *http.Request) (string, uuid.UUID, error) {
	userID, err := ownerID(r)
	if err != nil {
		return "", uuid.Nil, err
	}
	imageID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("invalid image ID: %w", domain.ErrInvalidInput)
	}
	return userID, imageID, nil
}
