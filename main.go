package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	app "github.com/rocketscienceinc/onchain-tictactoe/internal"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/config"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/devenv"
)

const devCommandTimeout = 2 * time.Minute

// main - is the entry point of the application. It initializes the configuration, logger, and runs the command.
func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	serve := func(_ *cobra.Command, _ []string) error {
		conf := initConfig(configPath)
		logger := initLogger(conf)

		if err := app.RunApp(logger, conf); err != nil {
			return fmt.Errorf("app run failed: %w", err)
		}

		return nil
	}

	rootCmd := &cobra.Command{
		Use:           "tictactoe",
		Short:         "Web front-end of the on-chain tic-tac-toe game",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yml (default ./config.yml)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the game page",
		RunE:  serve,
	})

	rootCmd.AddCommand(newDevEnvCmd(&configPath))

	return rootCmd
}

func newDevEnvCmd(configPath *string) *cobra.Command {
	devCmd := &cobra.Command{
		Use:   "devenv",
		Short: "Run development environment actions without the page",
	}

	run := func(action func(ctx context.Context, tools *devenv.GameTools, logger *slog.Logger) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			conf := initConfig(*configPath)
			logger := initLogger(conf)

			tools, closeTools, err := app.NewDevTools(logger, conf)
			if err != nil {
				return err
			}
			defer closeTools()

			ctx, cancel := context.WithTimeout(cmd.Context(), devCommandTimeout)
			defer cancel()

			return action(ctx, tools, logger)
		}
	}

	devCmd.AddCommand(
		&cobra.Command{
			Use:   "clone",
			Short: "Clone the game program from devnet",
			RunE: run(func(ctx context.Context, tools *devenv.GameTools, logger *slog.Logger) error {
				exists, err := tools.CloneProgram(ctx)
				if err != nil {
					return err
				}
				logger.Info("program cloned", "exists", exists)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "restart",
			Short: "Restart the validator",
			RunE: run(func(ctx context.Context, tools *devenv.GameTools, logger *slog.Logger) error {
				version, err := tools.RestartValidator(ctx)
				if err != nil {
					return err
				}
				logger.Info("validator restarted", "version", version)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "restore",
			Short: "Restore the last snapshot of the game",
			RunE: run(func(ctx context.Context, tools *devenv.GameTools, logger *slog.Logger) error {
				result, err := tools.RestoreLastSnapshot(ctx)
				if err != nil {
					return err
				}
				logger.Info("snapshot restored", "snapshot", result.SnapshotID, "accounts", len(result.Accounts))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "delete-snapshots",
			Short: "Delete all snapshots of the game",
			RunE: run(func(ctx context.Context, tools *devenv.GameTools, logger *slog.Logger) error {
				deleted, err := tools.DeleteAppSnapshots(ctx)
				if err != nil {
					return err
				}
				logger.Info("snapshots deleted", "count", deleted)
				return nil
			}),
		},
	)

	return devCmd
}

// initialize config. Without a config file the environment alone is used.
func initConfig(path string) *config.Config {
	if path == "" {
		baseDir, err := os.Getwd()
		if err != nil {
			panic(fmt.Errorf("failed to get current directory: %w", err))
		}

		path = filepath.Join(baseDir, "./config.yml")
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		conf, err := config.LoadEnv()
		if err != nil {
			panic(err)
		}

		return conf
	}

	return config.MustLoad(path)
}

// initialize logger.
func initLogger(conf *config.Config) *slog.Logger {
	var level slog.Level

	switch conf.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
