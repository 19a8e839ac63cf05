package cmd

import (
	"encoding/json"
	"fmt"

	statusadapter "github.com/bnema/petminion/internal/adapters/render/status"
	"github.com/bnema/petminion/internal/application"
	"github.com/spf13/cobra"
)

const defaultRecent = 5

func newStatusCmd(app *app) *cobra.Command {
	var (
		asJSON bool
		recent int
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show today's feedings, entitlement and cooldowns",
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

			svc, err := app.statusService(journal)
			if err != nil {
				return err
			}

			status, err := svc.Status(cmd.Context(), recent)
			if err != nil {
				return err
			}

			return writeStatusOutput(cmd, app, status, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	cmd.Flags().IntVar(&recent, "recent", defaultRecent, "Number of recent feedings to include")

	return cmd
}

func writeStatusOutput(cmd *cobra.Command, app *app, status application.FeederStatus, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	rendered, err := app.statusRenderer(status, statusadapter.RenderOptions{Now: app.now()})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
