package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"imagedrive/internal/config"
	"imagedrive/internal/preview"
	"imagedrive/internal/repository"
	"imagedrive/internal/service"
	"imagedrive/internal/service/s3"
)

// application собирает репозитории и сервисы поверх одного подключения к БД
type application struct {
	cfg     *config.Config
	db      *sqlx.DB
	logger  *slog.Logger
	folders *service.FolderService
	images  *service.ImageService
	trash   *service.TrashService
	sweeper *service.Sweeper
}

func newApplication(ctx context.Context, paths *configPaths) (*application, error) {
	cfg, err := config.NewConfig(paths.app)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)

	db, err := connectWithRetry(&cfg.Database, 5, 5*time.Second, logger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(&cfg.Database, logger); err != nil {
		db.Close()
		return nil, err
	}

	s3Config, err := s3.NewConfig(paths.s3)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}
	objects, err := s3.NewClient(ctx, s3Config, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	// Инициализация репозиториев
	txManager := repository.NewTransactionManager(db)
	folderRepo := repository.NewFolderRepository(db)
	imageRepo := repository.NewImageRepository(db)
	trashRepo := repository.NewTrashRepository(db)

	// Инициализация сервисов
	engine := service.NewCascadeEngine(txManager, folderRepo, imageRepo, objects, logger)
	retention := cfg.Trash.RetentionPeriod

	return &application{
		cfg:     cfg,
		db:      db,
		logger:  logger,
		folders: service.NewFolderService(txManager, folderRepo, imageRepo, engine, logger),
		images:  service.NewImageService(txManager, folderRepo, imageRepo, objects, preview.NewProber(), logger),
		trash:   service.NewTrashService(folderRepo, imageRepo, trashRepo, engine, retention, logger),
		sweeper: service.NewSweeper(trashRepo, engine, retention, logger),
	}, nil
}

func (a *application) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("error closing database connection", "error", err)
	}
}
