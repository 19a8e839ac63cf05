package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	statusadapter "github.com/bnema/petminion/internal/adapters/render/status"
	"github.com/spf13/cobra"
)

func newHistoryCmd(app *app) *cobra.Command {
	var (
		asJSON bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent feedings from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			journal, err := app.openJournal()
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := journal.Close(); err == nil {
					err = closeErr
				}
			}()

			events, err := journal.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(events)
			}

			if len(events) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No feedings recorded.")
				return err
			}

			now := app.now()
			for _, event := range events {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", statusadapter.FormatEvent(event, now), event.Rule); err != nil {
					return err
				}
			}

			lastDay, err := journal.PortionsSince(cmd.Context(), now.Add(-24*time.Hour))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "\n%d %s in the last 24 hours\n", lastDay, portionUnit(lastDay))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of feedings to list")

	return cmd
}
