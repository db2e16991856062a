package entropysource

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"runtime"
	"time"

	"github.com/sixafter/nanoid"
)

// ProcessStatsSource polls the Go runtime's own memory and scheduler
// counters. These change on every poll for reasons entirely outside an
// attacker's control (GC pauses, heap growth, goroutine churn), but they
// are slow-moving and somewhat observable from outside the process, so
// this source alone is not fit to carry a real deployment's security
// margin — it is meant to be registered alongside stronger sources.
type ProcessStatsSource struct {
	name string
}

// NewProcessStatsSource constructs a ProcessStatsSource. If name is empty,
// a random instance name is generated so multiple instances registered in
// the same process still have stable, distinct identities.
func NewProcessStatsSource(name string) *ProcessStatsSource {
	if name == "" {
		id, err := nanoid.New()
		if err != nil {
			name = "process-stats"
		} else {
			name = "process-stats-" + id.String()
		}
	}
	return &ProcessStatsSource{name: name}
}

func (s *ProcessStatsSource) Name() string { return s.name }

func (s *ProcessStatsSource) GetEntropy(ctx context.Context, _ Priority) ([]byte, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var buf [36]byte
	binary.LittleEndian.PutUint64(buf[0:8], m.HeapAlloc)
	binary.LittleEndian.PutUint64(buf[8:16], m.TotalAlloc)
	binary.LittleEndian.PutUint32(buf[16:20], m.NumGC)
	binary.LittleEndian.PutUint64(buf[20:28], uint64(runtime.NumGoroutine()))
	binary.LittleEndian.PutUint64(buf[28:36], uint64(time.Now().UnixNano()))

	h := sha256.Sum256(buf[:36])
	return h[:], nil
}

func (s *ProcessStatsSource) Release() error { return nil }
