package terninger

import "github.com/mika76/terninger/entropysource"

// ReferenceSources constructs the three built-in entropy sources described
// in entropysource: process/scheduler stats, scheduling jitter, and a
// pooled-CSPRNG bootstrap source. They are intentionally low-assurance on
// their own; CLI entry points register them together so a fresh Generator
// always has something to poll, never as a substitute for a real external
// source in production.
func ReferenceSources() []entropysource.Source {
	return []entropysource.Source{
		entropysource.NewProcessStatsSource(""),
		entropysource.NewSchedulingJitterSource(""),
		entropysource.NewBootstrapSource(""),
	}
}
