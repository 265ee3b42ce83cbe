package main

import (
	"os"

	"github.com/spf13/cobra"
)

// configPaths пути к env-файлам конфигурации
type configPaths struct {
	app  string
	s3   string
	auth string
}

func newRootCmd() *cobra.Command {
	paths := &configPaths{}

	cmd := &cobra.Command{
		Use:           "imagedrive",
		Short:         "Image storage backend with folders and trash",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&paths.app, "config", ".app.env", "application config file")
	cmd.PersistentFlags().StringVar(&paths.s3, "s3-config", ".s3.env", "object storage config file")
	cmd.PersistentFlags().StringVar(&paths.auth, "auth-config", ".auth.env", "auth config file")

	cmd.AddCommand(
		newServeCmd(paths),
		newMigrateCmd(paths),
		newSweepCmd(paths),
	)

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
