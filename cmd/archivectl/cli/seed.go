package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/archive-api/internal/bootstrap"
	"github.com/noah-isme/archive-api/internal/service"
)

func NewSeedCommand() *cobra.Command {
	var (
		email    string
		password string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Install default categories, document types, keyword rules and the admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			admin := service.SeedAdmin{
				Email:    firstNonEmpty(email, rt.cfg.Seed.AdminEmail),
				Password: firstNonEmpty(password, rt.cfg.Seed.AdminPassword),
				Name:     firstNonEmpty(name, rt.cfg.Seed.AdminName),
			}
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				res, err := app.Services.Seed.Run(cmd.Context(), admin)
				if err != nil {
					return fmt.Errorf("seed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "categories=%d subcategories=%d document_types=%d rules=%d users=%d\n",
					res.Categories, res.Subcategories, res.DocumentTypes, res.Rules, res.Users)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "admin-email", "", "administrator email (default SEED_ADMIN_EMAIL)")
	cmd.Flags().StringVar(&password, "admin-password", "", "administrator password (default SEED_ADMIN_PASSWORD); empty skips the account")
	cmd.Flags().StringVar(&name, "admin-name", "", "administrator display name")

	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
