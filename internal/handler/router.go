package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Folders *FolderHandler
	Images  *ImageHandler
	Trash   *TrashHandler
	// Auth проверяет токен и кладёт ID владельца в контекст
	Auth           func(http.Handler) http.Handler
	Health         func(ctx context.Context) error
	AllowedOrigins []string
	Logger         *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(r.Context()); err != nil {
				cfg.Logger.Warn("health check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// HTTP маршруты
	r.Route("/v1", func(r chi.Router) {
		r.Use(cfg.Auth)

		r.Route("/folders", func(r chi.Router) {
			r.Post("/", cfg.Folders.CreateFolder)
			r.Get("/", cfg.Folders.ListFolders)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.Folders.GetFolderContent)
				r.Delete("/", cfg.Folders.DeleteFolder)
				r.Put("/rename", cfg.Folders.RenameFolder)
				r.Post("/restore", cfg.Folders.RestoreFolder)
				r.Get("/images", cfg.Images.ListImages)
				r.Post("/images", cfg.Images.UploadImage)
			})
		})

		r.Route("/images/{id}", func(r chi.Router) {
			r.Get("/", cfg.Images.GetImage)
			r.Delete("/", cfg.Images.TrashImage)
			r.Put("/rename", cfg.Images.RenameImage)
		})

		r.Route("/trash", func(r chi.Router) {
			r.Get("/", cfg.Trash.GetTrashItems)
			r.Post("/empty", cfg.Trash.EmptyTrash)
			r.Post("/restore", cfg.Trash.RestoreItem)
			r.Post("/delete", cfg.Trash.DeletePermanently)
			r.Get("/settings", cfg.Trash.GetSettings)
			r.Put("/settings", cfg.Trash.UpdateSettings)
		})
	})

	return r
}
