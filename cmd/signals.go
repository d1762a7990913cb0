package cmd

import (
	clts "anthrometer/clients"
	"anthrometer/internal/snapshot"
	"anthrometer/internal/widgets"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

var (
	headingColor     = color.New(color.FgCyan, color.Bold)
	unavailableColor = color.New(color.FgHiBlack)
	upColor          = color.New(color.FgGreen)
	downColor        = color.New(color.FgRed)
)

// signalsCmd prints the headline figure, signals and category scores.
var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Print the latest index value, signals and category scores.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		clients := clts.NewClients(logger, cfg)
		snap := clients.Resources.FetchAll(cmd.Context())
		return printSnapshot(cmd.OutOrStdout(), snap, time.Now())
	},
}

// printSnapshot writes the KPI line followed by the signal and category
// tables.
func printSnapshot(w io.Writer, snap *snapshot.Snapshot, now time.Time) error {
	kpi := widgets.BuildKPI(snap)
	if kpi.HasData {
		delta := kpi.DeltaText
		switch {
		case kpi.DeltaPct != nil && *kpi.DeltaPct < 0:
			delta = downColor.Sprint(delta)
		case kpi.DeltaPct != nil:
			delta = upColor.Sprint(delta)
		}
		fmt.Fprintf(w, "%s %d (%d) %s\n", headingColor.Sprint("GTI"), kpi.Value, kpi.Year, delta)
	} else {
		fmt.Fprintf(w, "%s no data\n", headingColor.Sprint("GTI"))
	}
	if ago := widgets.AgoText(snap.Token(), now); ago != "" {
		fmt.Fprintln(w, ago)
	}

	fmt.Fprintf(w, "\n%s\n", headingColor.Sprint("Signals"))
	if err := printSignalTable(w, widgets.Signals(snap.Status)); err != nil {
		return err
	}
	fmt.Fprintln(w, widgets.Note(snap.Status))

	fmt.Fprintf(w, "\n%s\n", headingColor.Sprint("Categories"))
	return printCategoryTable(w, widgets.Categories(snap.Categories))
}

func printSignalTable(w io.Writer, rows []widgets.SignalRow) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Group", "Signal", "Value"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, r := range rows {
		value := r.Text
		if !r.Available {
			value = unavailableColor.Sprint(value)
		}
		data = append(data, []string{r.Group, r.Label, value})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printCategoryTable(w io.Writer, rows []widgets.CategoryRow) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Category", "Score"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, r := range rows {
		score := r.Text
		if !r.Available {
			score = unavailableColor.Sprint(score)
		}
		data = append(data, []string{r.Name, score})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
