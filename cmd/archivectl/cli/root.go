// Package cli holds the archivectl administration commands.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/bootstrap"
	"github.com/noah-isme/archive-api/pkg/config"
	"github.com/noah-isme/archive-api/pkg/logger"
)

// VersionInfo is stamped at build time.
type VersionInfo struct {
	Version string
	Commit  string
}

// runtime is the state shared by every command after PersistentPreRunE.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
}

var rt runtime

func NewRootCommand(info VersionInfo) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "archivectl",
		Short:         "Document archive administration",
		Long:          "Administrative tasks for the document archive: schema migrations, seeding reference data, audit retention and bulk categorization.",
		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			cfg.Log.Format = "console"
			l, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			rt = runtime{cfg: cfg, logger: l}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Version = fmt.Sprintf("%s.%s", info.Version, info.Commit)

	return cmd
}

// withApp builds the archive services for the duration of fn.
func withApp(ctx context.Context, fn func(app *bootstrap.App) error) error {
	app, err := bootstrap.New(ctx, rt.cfg, rt.logger)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
