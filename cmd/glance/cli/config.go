package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/glance/internal/config"
	"github.com/felixgeelhaar/glance/internal/credential"
)

var secret bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if !config.IsKey(key) {
			return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(config.Keys(), ", "))
		}
		probe := config.Default()
		if err := probe.Set(key, value); err != nil {
			return err
		}

		_, s, err := loadSettings()
		if err != nil {
			return err
		}
		defer s.Close()

		if secret || config.IsSecret(key) {
			vault, err := credential.NewVault()
			if err != nil {
				return err
			}
			if err := vault.Put(s, key, value); err != nil {
				return fmt.Errorf("failed to set config: %w", err)
			}
		} else if err := s.SetConfig(key, value); err != nil {
			return fmt.Errorf("failed to set config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved: %s\n", key)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		settings, s, err := loadSettings()
		if err != nil {
			return err
		}
		defer s.Close()

		val, ok := settings.Get(key)
		if !ok {
			return fmt.Errorf("unknown setting %q", key)
		}
		out := cmd.OutOrStdout()
		switch {
		case val == "":
			fmt.Fprintln(out, "(not set)")
		case config.IsSecret(key):
			fmt.Fprintln(out, credential.Mask(val))
		default:
			fmt.Fprintln(out, val)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configSetCmd.Flags().BoolVar(&secret, "secret", false, "Encrypt the value before storing it")
}
