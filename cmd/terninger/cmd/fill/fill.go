// Package fill implements "terninger fill": a one-shot command that spins
// up a Generator with the reference entropy sources, waits for its first
// reseed, prints N random bytes as hex, and exits. It is a convenience and
// debugging entry point, not a long-running service; see cmd/serve for that.
package fill

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	terninger "github.com/mika76/terninger"
	"github.com/mika76/terninger/internal/cipherprng"
)

var (
	numBytes int
	timeout  time.Duration
	verbose  bool
)

// NewFillCommand creates and returns the fill command.
func NewFillCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Print N random bytes from a freshly seeded generator",
		Long: `fill constructs a Generator, registers the built-in reference entropy
sources, waits for the first reseed, and prints the requested number of
random bytes to stdout as hex.`,
		RunE: runFill,
	}

	cmd.Flags().IntVar(&numBytes, "bytes", 32, "number of random bytes to generate")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "how long to wait for the first reseed")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print timing and size details to stderr")

	return cmd
}

func runFill(cmd *cobra.Command, args []string) error {
	if numBytes <= 0 {
		return fmt.Errorf("--bytes must be a positive integer")
	}

	g := terninger.New(terninger.WithSources(terninger.ReferenceSources()...))
	defer g.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	if err := g.StartAndWaitForNthSeed(ctx, 1); err != nil {
		return fmt.Errorf("waiting for first reseed: %w", err)
	}

	buf := make([]byte, numBytes)
	if err := g.Fill(buf); err != nil {
		if err == cipherprng.Uninitialised {
			return fmt.Errorf("generator was not yet seeded: %w", err)
		}
		return fmt.Errorf("filling buffer: %w", err)
	}
	duration := time.Since(start)

	if _, err := fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(buf)); err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(cmd.OutOrStderr(), "terninger fill: generated %s in %s\n", humanize.Bytes(uint64(numBytes)), duration)
	}
	return nil
}
