package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mika76/terninger/cmd/terninger/cmd/fill"
	"github.com/mika76/terninger/cmd/terninger/cmd/serve"
	"github.com/mika76/terninger/cmd/terninger/cmd/version"
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "terninger",
	Short: "A pooled, auto-reseeding cryptographic PRNG",
	Long:  `terninger runs a Fortuna-style pooled cryptographic PRNG as a long-lived service or a one-shot CLI for ad-hoc random bytes.`,
}

// Execute adds all child commands to the root command and runs it. It is
// called by main.main and only needs to happen once.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing terninger: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.AddCommand(serve.NewServeCommand())
	RootCmd.AddCommand(fill.NewFillCommand())
	RootCmd.AddCommand(version.NewVersionCommand())
}
