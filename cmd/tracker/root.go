package main

import (
	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-tracker/internal/config"
)

var version = "0.1.0"

type rootOptions struct {
	configFile string
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configFile)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "kanso-tracker",
		Short: "Kanso tracker keeps your to-dos, habits and journal for each day.",
		Long: `Kanso tracker is a personal daily tracker. It stores tasks, habits and
journal entries, derives habit frequencies, trends and suggestions, and
serves a live view of every tracked day to a local UI.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (yaml, toml or json)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newTokenCmd(opts))
	return cmd
}
