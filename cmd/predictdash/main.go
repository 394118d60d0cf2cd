/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

// Command predictdash runs the prediction markets dashboard backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/predictdash/predictdash/internal/app"
	"github.com/predictdash/predictdash/internal/version"
	"github.com/predictdash/predictdash/log"
	"github.com/predictdash/predictdash/service"
)

type rootFlags struct {
	configPath string
	envFile    string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:          version.AppName,
		Short:        "Prediction markets dashboard backend",
		Long:         "Proxies the Dome API (Polymarket and Kalshi) with a paced request queue and a response cache.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags)
		},
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a YAML config file (optional)")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the configuration")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			Long: `Start the HTTP server and the auto-bot worker.

The server stops gracefully on SIGINT or SIGTERM.`,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd, flags)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				cmd.Printf("%s %s (%s)\n", version.AppName, version.Get(), runtime.Version())
			},
		},
	)
	return rootCmd
}

func runServe(cmd *cobra.Command, flags *rootFlags) error {
	if err := loadEnvFile(flags.envFile); err != nil {
		return err
	}

	cfg, err := app.LoadConfigFromFile(flags.configPath)
	if err != nil {
		return err
	}

	logger, closeLogger := log.NewLogger(cfg.Log, cfg.Dome.APIKey)
	defer closeLogger()

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create application", log.Error(err))
		return err
	}
	logger.Info("starting "+version.UserAgent(), log.String("address", cfg.Server.Address))
	return service.New(logger, a).StartContext(cmd.Context())
}

// loadEnvFile sets variables from the dotenv file without overriding the existing ones.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
