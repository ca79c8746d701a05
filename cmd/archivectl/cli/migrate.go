package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/archive-api/internal/bootstrap"
)

func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				applied, err := app.Migrate(cmd.Context())
				if err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				if len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
					return nil
				}
				for _, name := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
				}
				return nil
			})
		},
	}
}
