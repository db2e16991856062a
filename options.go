package terninger

import (
	"github.com/mika76/terninger/entropysource"
	"github.com/mika76/terninger/internal/scheduler"
)

type config struct {
	id         string
	sources    []entropysource.Source
	schedOpts  []scheduler.Option
}

// Option customizes a Generator at construction time.
type Option func(*config)

// WithID overrides the Generator's identity, normally a random UUID. Useful
// for log correlation when a process runs more than one Generator.
func WithID(id string) Option {
	return func(c *config) { c.id = id }
}

// WithSources registers entropy sources at construction time, equivalent to
// calling AddSource once per source immediately after New.
func WithSources(sources ...entropysource.Source) Option {
	return func(c *config) { c.sources = append(c.sources, sources...) }
}

// WithSchedulerOptions forwards scheduler.Option values to the internal
// worker's configuration, for tests and callers that need to tune the
// reseed thresholds, sleep intervals, or the open-question knobs documented
// in internal/scheduler.
func WithSchedulerOptions(opts ...scheduler.Option) Option {
	return func(c *config) { c.schedOpts = append(c.schedOpts, opts...) }
}
