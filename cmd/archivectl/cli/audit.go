package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/archive-api/internal/bootstrap"
)

func NewAuditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit trail maintenance",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Delete audit entries whose retention date has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				deleted, err := app.Services.Audit.Cleanup(cmd.Context())
				if err != nil {
					return fmt.Errorf("audit cleanup: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired audit entries\n", deleted)
				return nil
			})
		},
	})

	return cmd
}
