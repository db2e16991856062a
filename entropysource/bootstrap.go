package entropysource

import (
	"context"

	ctrdrbg "github.com/sixafter/aes-ctr-drbg"
)

// bootstrapEventSize is the size of the entropy event BootstrapSource
// contributes per poll. It is intentionally small: this source exists to
// guarantee the accumulator always has something to work with, not to
// carry the deployment's actual security margin.
const bootstrapEventSize = 32

// BootstrapSource wraps the package-level, pool-backed AES-CTR-DRBG reader
// from github.com/sixafter/aes-ctr-drbg. It is meant to be registered
// alongside, never instead of, real external sources: it guarantees the
// scheduler always has at least one fast, always-available source so a
// freshly started generator is never stuck at priority High purely for
// lack of anything to poll.
type BootstrapSource struct {
	name string
}

// NewBootstrapSource constructs a BootstrapSource with the given instance
// name, defaulting to "bootstrap" if empty.
func NewBootstrapSource(name string) *BootstrapSource {
	if name == "" {
		name = "bootstrap"
	}
	return &BootstrapSource{name: name}
}

func (s *BootstrapSource) Name() string { return s.name }

func (s *BootstrapSource) GetEntropy(ctx context.Context, _ Priority) ([]byte, error) {
	buf := make([]byte, bootstrapEventSize)
	if _, err := ctrdrbg.Reader.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *BootstrapSource) Release() error { return nil }
