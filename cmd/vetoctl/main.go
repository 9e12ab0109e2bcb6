// Package main implements vetoctl, a one-shot command line for the veto tools.
// Each tool becomes a subcommand; calls run against the local database or a
// remote veto gRPC listener.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	remoteAddr string
	jsonOut    bool
)

var rootCmd = &cobra.Command{
	Use:           "vetoctl",
	Short:         "Drive the veto guardrail tools from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", envOr("VETO_CONFIG", "veto.yaml"), "path to YAML or JSON config")
	rootCmd.PersistentFlags().StringVar(&remoteAddr, "remote", os.Getenv("VETO_REMOTE"), "call a veto gRPC listener at host:port instead of the local db")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print raw JSON payloads")

	rootCmd.AddCommand(toolsCmd)
	for _, c := range toolCommands() {
		rootCmd.AddCommand(c)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
