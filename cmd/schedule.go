package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newScheduleCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Print the daily feeding schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schedule, err := app.cfg.BuildSchedule()
			if err != nil {
				return err
			}

			entries := schedule.Entries()
			if len(entries) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No scheduled feedings.")
				return err
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("AT", "PORTIONS", "CUMULATIVE")

			cumulative := 0
			for _, entry := range entries {
				cumulative += entry.Count
				t.Row(entry.At.String(), strconv.Itoa(entry.Count), strconv.Itoa(cumulative))
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\nrule: %s, %d portions per day\n", t.Render(), app.cfg.Rule, schedule.TotalPerDay())
			return err
		},
	}
}
