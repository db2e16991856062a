package version

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates and returns the version command.
func NewVersionCommand() *cobra.Command {
	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Display the version of terninger",
		Long:  `Display the current version of terninger.`,
		Run: func(cmd *cobra.Command, args []string) {
			writer := bufio.NewWriter(cmd.OutOrStdout())
			defer func(writer *bufio.Writer) {
				if err := writer.Flush(); err != nil {
					_, _ = fmt.Fprintf(os.Stderr, "Error flushing writer: %v\n", err)
				}
			}(writer)

			if _, err := writer.WriteString(fmt.Sprintf("version: %s\n", Version())); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "Error writing version: %v\n", err)
				return
			}
			if _, err := writer.WriteString(fmt.Sprintf("commit: %s\n", GitCommitID())); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "Error writing commit: %v\n", err)
				return
			}
		},
	}

	return versionCmd
}

// Prefix is the prefix of the git tag for a version.
const Prefix = "v"

// version is set when compiling with --ldflags="-X github.com/mika76/terninger/cmd/terninger/cmd/version.version=vX.Y.Z".
var version = "v0.0.0-unset"

// gitCommitID is set when compiling with --ldflags="-X github.com/mika76/terninger/cmd/terninger/cmd/version.gitCommitID=<commit-id>".
var gitCommitID = ""

// Version returns the current terninger version.
func Version() string {
	return version
}

// GitCommitID returns the git commit id terninger was built from.
func GitCommitID() string {
	return gitCommitID
}

// SemverVersion returns the current version parsed as a semantic version.
func SemverVersion() (semver.Version, error) {
	return semver.Make(strings.TrimPrefix(Version(), Prefix))
}
