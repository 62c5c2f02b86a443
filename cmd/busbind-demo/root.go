package main

import (
	"github.com/spf13/cobra"

	"github.com/b0bbywan/go-busbind/bus"
	"github.com/b0bbywan/go-busbind/config"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "busbind-demo",
		Short:         "Exercise go-busbind against a live bus",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newPingCommand())
	rootCmd.AddCommand(newIntrospectCommand())
	rootCmd.AddCommand(newGetPropertyCommand())

	return rootCmd
}

// openBus loads the framework config, applies it and connects.
func openBus() (bus.Bus, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	cfg.Apply()
	return cfg.OpenBus()
}
