package cmd

import "github.com/spf13/cobra"

// skipWire marks commands that run without loading configuration.
const skipWire = "petminion/skip-wire"

type rootFlags struct {
	configPath string
	debug      bool
	logFormat  string
	simulate   bool
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	app := &app{}

	rootCmd := &cobra.Command{
		Use:           "petminion",
		Short:         "Petminion: a camera-driven pet feeder trainer",
		Long:          "petminion watches a camera, recognizes your pet (and its toys), and dispenses food according to a daily schedule and training rule. State survives restarts, so a pet is never double-fed.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipWire] == "true" {
				return nil
			}
			return app.wire(flags, cmd.ErrOrStderr())
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", envOrDefault("PETMINION_CONFIG", ""), "Config file (default <user config dir>/petminion/config.toml)")
	pf.BoolVar(&flags.debug, "debug", false, "Log at debug level")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format: text or json (default from config)")
	pf.BoolVar(&flags.simulate, "simulate", false, "Use the simulated camera, recognizer, feeder and social poster")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(app),
		newStatusCmd(app),
		newScheduleCmd(app),
		newHistoryCmd(app),
		newFeedCmd(app),
		newCooldownCmd(app),
		newSecretCmd(app),
	)

	return rootCmd
}
