package terninger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mika76/terninger/entropysource"
	"github.com/mika76/terninger/internal/cipherprng"
	"github.com/mika76/terninger/internal/scheduler"
)

type burstSource struct {
	name string
	size int
}

func (s *burstSource) Name() string { return s.name }

func (s *burstSource) GetEntropy(ctx context.Context, p entropysource.Priority) ([]byte, error) {
	return make([]byte, s.size), nil
}

func (s *burstSource) Release() error { return nil }

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	return New(
		WithSources(&burstSource{name: "burst", size: 64}),
		WithSchedulerOptions(
			scheduler.WithSleepIntervals(2*time.Millisecond, 2*time.Millisecond, 2*time.Millisecond),
			scheduler.WithMinReseedInterval(0),
		),
	)
}

func TestFillBeforeFirstReseedReturnsUninitialised(t *testing.T) {
	g := New()
	defer g.Dispose()

	buf := make([]byte, 32)
	err := g.Fill(buf)
	assert.ErrorIs(t, err, cipherprng.Uninitialised)
}

func TestStartAndWaitForNthSeedThenFillSucceeds(t *testing.T) {
	g := newTestGenerator(t)
	defer g.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, g.StartAndWaitForNthSeed(ctx, 1))

	buf := make([]byte, 64)
	require.NoError(t, g.Fill(buf))

	allZero := true
	for _, b := range buf {
		if b != 0 {
			allZero = false
			break
		}
	}
	assert.False(t, allZero, "Fill should not return an all-zero buffer")
}

func TestFillChunksAcrossMaxRequestBoundary(t *testing.T) {
	g := newTestGenerator(t)
	defer g.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, g.StartAndWaitForNthSeed(ctx, 1))

	buf := make([]byte, g.prng.MaxRequestBytes()+17)
	require.NoError(t, g.Fill(buf))
}

func TestExplicitReseedAdvancesCountAndForcesHighPriority(t *testing.T) {
	g := newTestGenerator(t)
	defer g.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, g.Start(ctx))

	time.Sleep(20 * time.Millisecond)

	before := g.Stats().ReseedCount
	require.NoError(t, g.Reseed())
	after := g.Stats()

	assert.Greater(t, after.ReseedCount, before)
	assert.Equal(t, "high", after.Priority)
}

func TestDisposeIsIdempotentAndRejectsFurtherUse(t *testing.T) {
	g := newTestGenerator(t)
	require.NoError(t, g.Dispose())
	require.NoError(t, g.Dispose())

	assert.ErrorIs(t, g.Fill(make([]byte, 8)), ErrDisposed)
	assert.ErrorIs(t, g.AddSource(&burstSource{name: "late", size: 8}), ErrDisposed)
}

func TestStatsReportsRegisteredSourceCount(t *testing.T) {
	g := newTestGenerator(t)
	defer g.Dispose()

	assert.Equal(t, 1, g.Stats().SourceCount)
	require.NoError(t, g.AddSource(&burstSource{name: "second", size: 8}))
	assert.Equal(t, 2, g.Stats().SourceCount)
}
