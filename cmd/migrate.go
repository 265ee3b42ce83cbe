package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"imagedrive/internal/config"
)

func newMigrateCmd(paths *configPaths) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(
		newMigrateUpCmd(paths),
		newMigrateDownCmd(paths),
		newMigrateVersionCmd(paths),
	)

	return cmd
}

func newMigrateUpCmd(paths *configPaths) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig(paths.app)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			db, err := connectWithRetry(&cfg.Database, 5, 0, logger)
			if err != nil {
				return err
			}
			db.Close()

			if err := runMigrations(&cfg.Database, logger); err != nil {
				return err
			}
			cmd.Println("All pending migrations applied successfully")
			return nil
		},
	}
}

func newMigrateDownCmd(paths *configPaths) *cobra.Command {
	return &cobra.Command{
		Use:   "down [steps|all]",
		Short: "Roll back the given number of migrations or all of them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all := args[0] == "all"
			steps := 0
			if !all {
				var err error
				steps, err = strconv.Atoi(args[0])
				if err != nil || steps <= 0 {
					return fmt.Errorf("invalid number of steps: %s", args[0])
				}
			}

			cfg, err := config.NewConfig(paths.app)
			if err != nil {
				return err
			}
			m, err := newMigrate(&cfg.Database)
			if err != nil {
				return err
			}
			defer m.Close()

			if all {
				err = m.Down()
			} else {
				err = m.Steps(-steps)
			}
			if err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("rollback failed: %w", err)
			}

			cmd.Println("Rollback completed successfully")
			return nil
		},
	}
}

func newMigrateVersionCmd(paths *configPaths) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig(paths.app)
			if err != nil {
				return err
			}
			m, err := newMigrate(&cfg.Database)
			if err != nil {
				return err
			}
			defer m.Close()

			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				cmd.Println("No migrations applied")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to get migration version: %w", err)
			}

			cmd.Printf("Version: %d, dirty: %t\n", version, dirty)
			return nil
		},
	}
}
