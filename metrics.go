package terninger

import (
	"fmt"
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

// Stats is a point-in-time snapshot of a Generator's internal state, meant
// for health checks and metrics scrapers rather than control flow.
type Stats struct {
	UniqueID       string
	BytesRequested uint64
	BytesServed    uint64
	ReseedCount    uint64
	Priority       string
	SourceCount    int
}

// String renders byte counts in human-readable form, e.g. for log lines.
func (s Stats) String() string {
	return fmt.Sprintf(
		"generator %s: requested=%s served=%s reseeds=%d priority=%s sources=%d",
		s.UniqueID,
		humanize.Bytes(s.BytesRequested),
		humanize.Bytes(s.BytesServed),
		s.ReseedCount,
		s.Priority,
		s.SourceCount,
	)
}

// Stats returns a snapshot of the Generator's current state.
func (g *Generator) Stats() Stats {
	return Stats{
		UniqueID:       g.id,
		BytesRequested: atomic.LoadUint64(&g.bytesRequested),
		BytesServed:    atomic.LoadUint64(&g.bytesServed),
		ReseedCount:    atomic.LoadUint64(&g.reseedCount),
		Priority:       g.worker.Priority().String(),
		SourceCount:    g.registry.Len(),
	}
}
