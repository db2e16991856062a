package entropysource

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"runtime"
	"time"

	"github.com/sixafter/nanoid"
)

// SchedulingJitterSource measures how long the Go runtime scheduler takes
// to hand control back after a goroutine voluntarily yields. That delay is
// a function of OS scheduler load, other processes on the host, and timer
// hardware jitter — none of which a remote or co-resident attacker can
// fully control, though a privileged local attacker might partially
// influence it. Like ProcessStatsSource, it is a supplementary source, not
// a sole source of entropy.
type SchedulingJitterSource struct {
	name string
}

// NewSchedulingJitterSource constructs a SchedulingJitterSource, generating
// a default instance name if none is supplied.
func NewSchedulingJitterSource(name string) *SchedulingJitterSource {
	if name == "" {
		id, err := nanoid.New()
		if err != nil {
			name = "scheduling-jitter"
		} else {
			name = "scheduling-jitter-" + id.String()
		}
	}
	return &SchedulingJitterSource{name: name}
}

func (s *SchedulingJitterSource) Name() string { return s.name }

func (s *SchedulingJitterSource) GetEntropy(ctx context.Context, _ Priority) ([]byte, error) {
	start := time.Now()
	runtime.Gosched()
	elapsed := time.Since(start)

	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(elapsed))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(start.UnixNano()))

	h := sha256.Sum256(buf[:])
	return h[:], nil
}

func (s *SchedulingJitterSource) Release() error { return nil }
