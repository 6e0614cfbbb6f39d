package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ideatrek/authgate/app/authgate"
	"github.com/ideatrek/authgate/core/config"
)

var envFiles []string

func main() {
	rootCmd := &cobra.Command{
		Use:   "authgate",
		Short: "Session gateway for the identity backend",
		Long: `authgate serves the route guard, credential endpoints and OAuth
callback in front of the identity backend. The session commands hold a
session in a local cookie file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if len(envFiles) == 0 {
				return nil
			}
			return config.LoadFiles(envFiles...)
		},
	}
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Load environment from these files before reading configuration")

	rootCmd.AddCommand(
		serveCmd(),
		signInCmd(),
		signOutCmd(),
		sessionCmd(),
		diagnoseCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func loadConfig() (authgate.Config, error) {
	cfg, err := authgate.LoadConfig()
	if err != nil {
		return authgate.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
