// Package cmd holds the threadsapi command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/threads-api/internal/config"
	"github.com/JakeFAU/threads-api/internal/logging"
	"github.com/JakeFAU/threads-api/internal/server"
)

// App is the long-running service the root command drives.
type App interface {
	Run(ctx context.Context) error
	Close() error
}

// AppFactory builds the service from loaded configuration. Tests inject fakes.
type AppFactory func(cfg config.Config, logger *zap.Logger) (App, error)

func newServerApp(cfg config.Config, logger *zap.Logger) (App, error) {
	app, err := server.NewApp(cfg, logger)
	if err != nil {
		return nil, err
	}
	return app, nil
}

// newRootCmd creates the root command around factory.
func newRootCmd(factory AppFactory) *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "threadsapi",
		Short: "Read-only HTTP facade over public Threads data.",
		Long: `threadsapi serves user profiles, user threads and thread replies
fetched from threads.net as JSON. The listening port comes from PORT
(default 3000); everything else can be set in a config file or through
THREADSAPI_* environment variables.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config failed: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			zap.ReplaceGlobals(logger)

			app, err := factory(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer func() {
				if closeErr := app.Close(); closeErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "shutdown: %v\n", closeErr)
				}
			}()

			if err := app.Run(cmd.Context()); err != nil {
				logger.Error("server exited", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "path to a YAML/JSON/TOML config file")
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd(newServerApp).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "threadsapi: %v\n", err)
		os.Exit(1)
	}
}
