package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/archive-api/internal/bootstrap"
	"github.com/noah-isme/archive-api/internal/models"
)

func NewRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Category rule operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "apply",
		Short: "Run active rules over uncategorized documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				res, err := app.Services.Rules.BulkApply(cmd.Context(), models.SystemActor("archivectl"))
				if err != nil {
					return fmt.Errorf("apply rules: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "total=%d categorized=%d no_match=%d errors=%d\n",
					res.Total, res.Categorized, res.NoMatch, res.Errors)
				return nil
			})
		},
	})

	return cmd
}
