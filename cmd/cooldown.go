package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/bnema/petminion/internal/application"
	"github.com/spf13/cobra"
)

func newCooldownCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cooldown",
		Short: "Show, pin or unpin the feed cooldown",
		Long:  "A pinned cooldown is saved with the feeding state and wins over the configured interval, across restarts, until it is unpinned.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limiter, configured, err := app.feedCooldown(cmd.Context())
			if err != nil {
				return err
			}
			return writeCooldown(cmd.OutOrStdout(), limiter, configured)
		},
	}

	cmd.AddCommand(newCooldownPinCmd(app), newCooldownUnpinCmd(app))
	return cmd
}

func newCooldownPinCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pin <duration>",
		Short: "Pin the feed cooldown, e.g. 45m (0s feeds everything owed at once)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, err := time.ParseDuration(args[0])
			if err != nil {
				return fmt.Errorf("parse cooldown: %w", err)
			}
			if interval < 0 {
				return fmt.Errorf("cooldown must not be negative, got %s", interval)
			}

			limiter, _, err := app.feedCooldown(cmd.Context())
			if err != nil {
				return err
			}
			if err := limiter.SetInterval(cmd.Context(), interval); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "feed cooldown pinned to %s\n", interval)
			return err
		},
	}
}

func newCooldownUnpinCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unpin",
		Short: "Return to the configured feed cooldown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limiter, configured, err := app.feedCooldown(cmd.Context())
			if err != nil {
				return err
			}
			if err := limiter.Unpin(cmd.Context()); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "feed cooldown unpinned, %s applies from the next start\n", configured)
			return err
		},
	}
}

func writeCooldown(w io.Writer, limiter *application.RateLimiter, configured time.Duration) error {
	source := "configured"
	if limiter.Pinned() {
		source = fmt.Sprintf("pinned, configured %s", configured)
	}

	state := "ready"
	if remaining := limiter.Remaining(); remaining > 0 {
		state = fmt.Sprintf("%s left", remaining.Round(time.Second))
	}

	_, err := fmt.Fprintf(w, "feed cooldown: %s (%s), %s\n", limiter.Interval(), source, state)
	return err
}
