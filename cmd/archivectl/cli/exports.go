package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/archive-api/internal/bootstrap"
)

func NewExportsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exports",
		Short: "Generated export files",
	}

	var olderThan time.Duration
	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove generated exports past their retention",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				removed, err := app.Services.Export.Cleanup(olderThan)
				if err != nil {
					return fmt.Errorf("export cleanup: %w", err)
				}
				for _, name := range removed {
					rt.logger.Sugar().Debugw("export removed", "file", name)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d export files\n", len(removed))
				return nil
			})
		},
	}
	cleanup.Flags().DurationVar(&olderThan, "older-than", 0, "minimum file age (defaults to 24h)")
	cmd.AddCommand(cleanup)

	return cmd
}
