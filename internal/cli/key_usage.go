package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docanalyser/internal/bootstrap"
)

var keyUsageCmd = &cobra.Command{
	Use:   "key-usage",
	Short: "Show usage and limits for the configured API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := bootstrap.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		usage, err := app.Service.KeyUsage(ctx)
		if err != nil {
			return fmt.Errorf("key usage: %w", err)
		}
		out, err := json.MarshalIndent(usage, "", "  ")
		if err != nil {
			return fmt.Errorf("encode key usage: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}
