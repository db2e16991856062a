// Package terninger is the Generator Facade: the single entry point spec.md
// §4.5 describes, wiring together the cipher PRNG, the entropy accumulator,
// the source registry, and the scheduler worker behind a small, safe public
// API. Most callers only ever need New, Start, Fill, and Stop.
package terninger

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/mika76/terninger/entropysource"
	"github.com/mika76/terninger/internal/accumulator"
	"github.com/mika76/terninger/internal/cipherprng"
	"github.com/mika76/terninger/internal/scheduler"
	"github.com/mika76/terninger/internal/sourceregistry"
)

// Generator is a pooled, auto-reseeding cryptographic PRNG. The zero value
// is not usable; construct one with New.
type Generator struct {
	id string

	registry *sourceregistry.Registry
	acc      *accumulator.Accumulator
	prng     *cipherprng.Generator
	worker   *scheduler.Worker

	reseedCount    uint64 // atomic
	bytesRequested uint64 // atomic
	bytesServed    uint64 // atomic

	mu           sync.Mutex
	reseedSignal chan struct{}
	disposed     bool
}

// New constructs a Generator. It does not start the background worker; call
// Start (or StartAndWaitForNthSeed) once sources have been registered.
func New(opts ...Option) *Generator {
	cfg := config{id: uuid.NewString()}
	for _, opt := range opts {
		opt(&cfg)
	}

	g := &Generator{
		id:           cfg.id,
		registry:     sourceregistry.New(),
		acc:          accumulator.New(),
		prng:         cipherprng.New(cipherprng.NullKey, nil),
		reseedSignal: make(chan struct{}),
	}

	for _, src := range cfg.sources {
		g.registry.Add(src)
	}

	schedCfg := scheduler.NewConfig(cfg.schedOpts...)
	g.worker = scheduler.New(g.registry, g.acc, g.prng, schedCfg, g.onReseed)
	return g
}

// ID returns the Generator's identity, a random UUID unless overridden with
// WithID.
func (g *Generator) ID() string { return g.id }

// Config returns the effective scheduler configuration this Generator is
// running with: the three open-question knobs plus the per-priority
// reseed thresholds and sleep intervals.
func (g *Generator) Config() scheduler.Config {
	return g.worker.Config()
}

// AddSource registers src with the running (or not-yet-started) generator.
// It is safe to call at any time, including while Start's worker is
// mid-cycle.
func (g *Generator) AddSource(src entropysource.Source) error {
	if g.isDisposed() {
		return ErrDisposed
	}
	g.registry.Add(src)
	return nil
}

// Start launches the background scheduler. Calling Start twice returns
// scheduler.ErrAlreadyStarted without affecting the running worker.
func (g *Generator) Start(ctx context.Context) error {
	if g.isDisposed() {
		return ErrDisposed
	}
	return g.worker.Start(ctx)
}

// StartAndWaitForNthSeed starts the generator (if not already started) and
// blocks until at least n reseeds have occurred or ctx is cancelled. It is
// the recommended way to bring a Generator up before relying on Fill, since
// Fill otherwise returns cipherprng.Uninitialised until the first reseed.
func (g *Generator) StartAndWaitForNthSeed(ctx context.Context, n uint64) error {
	if g.isDisposed() {
		return ErrDisposed
	}
	if err := g.worker.Start(ctx); err != nil && err != scheduler.ErrAlreadyStarted {
		return err
	}

	for {
		if atomic.LoadUint64(&g.reseedCount) >= n {
			return nil
		}
		g.mu.Lock()
		signal := g.reseedSignal
		g.mu.Unlock()
		select {
		case <-signal:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Reseed forces an immediate reseed from whatever entropy the accumulator
// currently holds, bypassing the scheduler's priority thresholds, and puts
// the worker back into High priority so it collects fresh entropy
// aggressively afterward. It is meant for callers who have independent
// reason to believe the current key may be compromised (e.g. after a VM
// snapshot restore).
func (g *Generator) Reseed() error {
	if g.isDisposed() {
		return ErrDisposed
	}
	if !g.worker.Started() {
		return ErrNotStarted
	}

	seed := g.acc.NextSeed()
	defer zero(seed)
	g.prng.Reseed(seed)

	g.onReseed()

	g.worker.ForceHighPriority()
	g.worker.Wake()
	return nil
}

// Fill fills buf with cryptographically strong pseudo-random bytes, chunking
// internally at the cipher PRNG's per-request cap so callers are never
// required to know about MaxBytesPerRequest. It returns
// cipherprng.Uninitialised if no reseed has occurred yet.
func (g *Generator) Fill(buf []byte) error {
	if g.isDisposed() {
		return ErrDisposed
	}

	atomic.AddUint64(&g.bytesRequested, uint64(len(buf)))

	max := g.prng.MaxRequestBytes()
	for offset := 0; offset < len(buf); {
		count := len(buf) - offset
		if count > max {
			count = max
		}
		if err := g.prng.Generate(buf, offset, count); err != nil {
			return err
		}
		atomic.AddUint64(&g.bytesServed, uint64(count))
		offset += count
	}
	return nil
}

// RequestStop signals the background worker to stop without waiting for it
// to exit.
func (g *Generator) RequestStop() {
	g.worker.RequestStop()
}

// Stop signals the background worker to stop and blocks until it exits.
func (g *Generator) Stop() {
	g.worker.Stop()
}

// Dispose stops the worker, releases every registered source, and marks the
// Generator unusable. Dispose is idempotent: calling it more than once
// returns nil without re-releasing sources.
func (g *Generator) Dispose() error {
	g.mu.Lock()
	if g.disposed {
		g.mu.Unlock()
		return nil
	}
	g.disposed = true
	g.mu.Unlock()

	g.worker.Stop()
	errs := g.registry.ReleaseAll()
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (g *Generator) isDisposed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disposed
}

// onReseed is invoked by the scheduler worker (or directly by Reseed) after
// every successful reseed: it advances the reseed counter and wakes every
// StartAndWaitForNthSeed caller to re-check its target.
func (g *Generator) onReseed() {
	atomic.AddUint64(&g.reseedCount, 1)
	g.mu.Lock()
	close(g.reseedSignal)
	g.reseedSignal = make(chan struct{})
	g.mu.Unlock()
}

func zero(bs []byte) {
	for i := range bs {
		bs[i] = 0
	}
}
