package cmd

import (
	clts "anthrometer/clients"
	"anthrometer/internal/app"
	"anthrometer/internal/prefs"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// prefsCmd groups the preference subcommands.
var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change the stored dashboard preferences.",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored preferences as JSON.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPreferences(cmd, func(store *prefs.Store) error {
			return printPreferences(cmd.OutOrStdout(), store.Get())
		})
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change one or more preferences.",
	Example: `  anthrometer prefs set --range 20y --line-weight 4
  anthrometer prefs set --dark=false --highlight-decade`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		patch := app.PreferencesPatch{}
		if flags.Changed("line-color") {
			v, _ := flags.GetString("line-color")
			c := prefs.LineColor(v)
			patch.LineColor = &c
		}
		if flags.Changed("line-weight") {
			v, _ := flags.GetInt("line-weight")
			patch.LineWeight = &v
		}
		if flags.Changed("range") {
			v, _ := flags.GetString("range")
			r := prefs.RangeMode(v)
			patch.Range = &r
		}
		if flags.Changed("dark") {
			v, _ := flags.GetBool("dark")
			patch.DarkMode = &v
		}
		if flags.Changed("highlight-decade") {
			v, _ := flags.GetBool("highlight-decade")
			patch.HighlightDecade = &v
		}

		return withPreferences(cmd, func(store *prefs.Store) error {
			p, err := store.Update(cmd.Context(), patch.Apply)
			var verrs prefs.ValidationErrors
			if errors.As(err, &verrs) {
				for _, e := range verrs {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", e.Field, e.Message)
				}
				return fmt.Errorf("rejected %d invalid preference(s)", len(verrs))
			}
			if err != nil {
				return err
			}
			return printPreferences(cmd.OutOrStdout(), p)
		})
	},
}

var prefsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default preferences.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPreferences(cmd, func(store *prefs.Store) error {
			return printPreferences(cmd.OutOrStdout(), store.Reset(cmd.Context()))
		})
	},
}

func init() {
	prefsSetCmd.Flags().String("line-color", "", "Line color: auto, blue, green, purple, orange or red")
	prefsSetCmd.Flags().Int("line-weight", 0, "Line weight from 1 to 10")
	prefsSetCmd.Flags().String("range", "", "Visible range: all, 5y, 20y or decade")
	prefsSetCmd.Flags().Bool("dark", false, "Use the dark theme")
	prefsSetCmd.Flags().Bool("highlight-decade", false, "Shade the last ten years")
}

// withPreferences opens the configured preference store, runs fn and closes
// the backend.
func withPreferences(cmd *cobra.Command, fn func(store *prefs.Store) error) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	clients := clts.NewClients(logger, cfg)
	defer clients.Close()

	store, kv, err := app.OpenPreferences(cmd.Context(), logger, cfg, clients.Gist)
	if err != nil {
		return err
	}
	defer kv.Close()

	return fn(store)
}

func printPreferences(w io.Writer, p prefs.Preferences) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
