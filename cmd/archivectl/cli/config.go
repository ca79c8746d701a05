package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the archive configuration for errors and warnings",
		RunE: func(cmd *cobra.Command, args []string) error {
			result := rt.cfg.Validate()
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if !result.Valid {
				return fmt.Errorf("configuration has %d errors", len(result.Errors))
			}
			return nil
		},
	})

	return cmd
}
