package version

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	is := assert.New(t)
	is.NotEmpty(Version())
}

func TestGitCommitID(t *testing.T) {
	is := assert.New(t)
	is.NotNil(GitCommitID())
}

func TestSemverVersion(t *testing.T) {
	is := assert.New(t)

	v, err := SemverVersion()
	is.NoError(err)
	is.Equal(uint64(0), v.Major)
}

func TestVersionCommand_Defaults(t *testing.T) {
	is := assert.New(t)

	version = "v0.0.0-unset"
	gitCommitID = ""

	cmd := NewVersionCommand()
	var outBuf bytes.Buffer
	cmd.SetOut(&outBuf)

	is.NoError(cmd.Execute())

	output := strings.TrimSpace(outBuf.String())
	is.Contains(output, "version: v0.0.0-unset")
	is.Contains(output, "commit:")
}

func TestVersionCommand_CustomValues(t *testing.T) {
	is := assert.New(t)

	version = "v1.2.3"
	gitCommitID = "abcdef1234567890"
	defer func() {
		version = "v0.0.0-unset"
		gitCommitID = ""
	}()

	cmd := NewVersionCommand()
	var outBuf bytes.Buffer
	cmd.SetOut(&outBuf)

	is.NoError(cmd.Execute())

	output := strings.TrimSpace(outBuf.String())
	is.Contains(output, "version: v1.2.3")
	is.Contains(output, "commit: abcdef1234567890")
}
