package cmd

import (
	clts "anthrometer/clients"
	"anthrometer/internal/app"
	"anthrometer/internal/chart"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// chartCmd prints the chart configuration the dashboard would plot now.
var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Print the chart configuration for the current data and preferences.",
	Long: `Fetch every resource once, read the stored preferences and print the
resulting chart configuration as JSON. The output is the same document the
dashboard hands to the plotting engine.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		clients := clts.NewClients(logger, cfg)
		snap := clients.Resources.FetchAll(cmd.Context())

		store, kv, err := app.OpenPreferences(cmd.Context(), logger, cfg, clients.Gist)
		if err != nil {
			return err
		}
		defer kv.Close()

		out, err := chart.Assemble(snap.Series, snap.Events, store.Get())
		if errors.Is(err, chart.ErrNoData) {
			return fmt.Errorf("no data available from %s", clients.Resources.BaseURL())
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}
