package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newSecretCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage credentials used by the social poster and the MQTT feeder",
	}

	cmd.AddCommand(
		newSecretSetCmd(app),
		newSecretRemoveCmd(app),
		newSecretKeysCmd(app),
	)

	return cmd
}

func newSecretSetCmd(app *app) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set <key>",
		Short: "Store a secret (reads stdin when --value is omitted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			if key == "" {
				return errors.New("secret key is empty")
			}

			if !cmd.Flags().Changed("value") {
				read, err := readSecretValue(cmd.InOrStdin())
				if err != nil {
					return err
				}
				value = read
			}
			if value == "" {
				return errors.New("secret value is empty")
			}

			if err := app.secretStore.Put(cmd.Context(), key, value); err != nil {
				return fmt.Errorf("store secret %q: %w", key, err)
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", key)
			return err
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "Secret value")

	return cmd
}

func newSecretRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "Remove a stored secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.secretStore.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("remove secret %q: %w", args[0], err)
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return err
		},
	}
}

func newSecretKeysCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the secret keys the configuration refers to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys := []string{app.cfg.Pushover.AppTokenKey, app.cfg.Pushover.UserKeyKey}
			if app.cfg.MQTT.PasswordKey != "" {
				keys = append(keys, app.cfg.MQTT.PasswordKey)
			}

			for _, key := range keys {
				state := "set"
				if _, err := app.secretStore.Get(cmd.Context(), key); err != nil {
					state = "missing"
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", key, state); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func readSecretValue(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read secret value: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
