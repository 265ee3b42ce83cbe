package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"imagedrive/internal/auth"
	"imagedrive/internal/handler"
)

func newServeCmd(paths *configPaths) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, the gRPC health server and the trash sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), paths)
		},
	}
}

func serve(ctx context.Context, paths *configPaths) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, paths)
	if err != nil {
		return err
	}
	defer app.Close()
	logger := app.logger

	// Подключение проверки токенов
	authConfig, err := auth.NewConfig(paths.auth)
	if err != nil {
		return fmt.Errorf("failed to load auth config: %w", err)
	}
	verifier, err := auth.NewVerifier(authConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}

	// Настройка HTTP роутера
	router := handler.NewRouter(handler.RouterConfig{
		Folders:        handler.NewFolderHandler(app.folders, logger),
		Images:         handler.NewImageHandler(app.images, app.cfg.Server.MaxUploadBytes, logger),
		Trash:          handler.NewTrashHandler(app.trash, logger),
		Auth:           verifier.Middleware,
		Health:         app.db.PingContext,
		AllowedOrigins: app.cfg.Server.Origins(),
		Logger:         logger,
	})

	// Запускаем очистку корзины
	if err := app.sweeper.Start(app.cfg.Trash.SweepSchedule); err != nil {
		return fmt.Errorf("failed to start trash sweeper: %w", err)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", app.cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC сервер отдаёт только стандартный health-сервис
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", app.cfg.Server.GRPCPort))
	if err != nil {
		app.sweeper.Stop()
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}

	errs := make(chan error, 2)

	go func() {
		logger.Info("starting gRPC server", "port", app.cfg.Server.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			errs <- fmt.Errorf("gRPC server: %w", err)
		}
	}()

	go func() {
		logger.Info("starting HTTP server", "port", app.cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("HTTP server: %w", err)
		}
	}()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	// Ожидаем сигнал завершения
	select {
	case <-ctx.Done():
		logger.Info("shutting down servers")
	case err = <-errs:
		logger.Error("server failed, shutting down", "error", err)
	}

	healthServer.Shutdown()
	app.sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Останавливаем HTTP сервер
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("HTTP server forced to shutdown", "error", shutdownErr)
	}

	// Останавливаем gRPC сервер
	grpcServer.GracefulStop()

	logger.Info("server exited properly")
	return err
}
