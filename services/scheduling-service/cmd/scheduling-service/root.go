package main

import (
	"github.com/spf13/cobra"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/config"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "scheduling-service",
		Short:         "Appointment scheduling and staff assignment service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadFile(configFlag)
		},
		// Containers start the binary without arguments.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (.env, .yaml, .toml)")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	return rootCmd
}
