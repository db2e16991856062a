// Package scheduler implements the cooperative worker loop that polls
// entropy sources, feeds the accumulator, and decides when to reseed the
// cipher PRNG. It is the "hard engineering" piece described in spec.md §1:
// a single long-running task that must never block a Fill caller and must
// never let a hostile or slow source stall the whole generator.
package scheduler

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/mika76/terninger/entropysource"
	"github.com/mika76/terninger/internal/accumulator"
	"github.com/mika76/terninger/internal/cipherprng"
)

// Priority is an alias of entropysource.Priority: the scheduler's priority
// state machine and the priority argument passed to Source.GetEntropy are
// the same concept, so they share one type across package boundaries.
type Priority = entropysource.Priority

const (
	High   = entropysource.High
	Normal = entropysource.Normal
	Low    = entropysource.Low
)

// ErrAlreadyStarted is returned by Start when the worker is already running.
type errAlreadyStarted struct{}

func (errAlreadyStarted) Error() string { return "scheduler: worker already started" }

// ErrAlreadyStarted is returned by Start when the worker is already running.
var ErrAlreadyStarted = errAlreadyStarted{}

// SourceRegistry is the subset of sourceregistry.Registry the scheduler
// depends on; declared as an interface so tests can substitute a fake
// without importing the concrete registry package.
type SourceRegistry interface {
	Snapshot() []entropysource.Source
}

// Worker is the scheduler's cooperative task. One Worker drives exactly one
// Accumulator and one cipherprng.Generator; it never polls sources or
// reseeds concurrently with itself.
type Worker struct {
	registry SourceRegistry
	acc      *accumulator.Accumulator
	prng     *cipherprng.Generator
	shuffle  *cipherprng.Generator
	cfg      Config

	onReseed func()

	mu         sync.Mutex
	priority   Priority
	lastReseed time.Time
	faults     map[string]*faultState
	cycle      uint64

	listenersMu sync.Mutex
	listeners   []func()

	startMu sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	wake    chan struct{}
}

type faultState struct {
	consecutive  int
	lastPollCycle uint64
}

// New constructs a Worker. onReseed, if non-nil, is invoked synchronously
// after every successful reseed and before the registered listeners fire;
// the Generator Facade uses it to bump its atomic reseed counter and notify
// StartAndWaitForNthSeed waiters.
func New(registry SourceRegistry, acc *accumulator.Accumulator, prng *cipherprng.Generator, cfg Config, onReseed func()) *Worker {
	return &Worker{
		registry: registry,
		acc:      acc,
		prng:     prng,
		shuffle:  cipherprng.New(cipherprng.CheapKey, nil),
		cfg:      cfg,
		priority: High,
		faults:   make(map[string]*faultState),
		onReseed: onReseed,
		wake:     make(chan struct{}, 1),
	}
}

// Priority returns the current scheduling priority.
func (w *Worker) Priority() Priority {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.priority
}

// Config returns the effective configuration the worker was constructed
// with. Config is immutable after New, so this is safe without locking.
func (w *Worker) Config() Config {
	return w.cfg
}

// Started reports whether Start has ever been called successfully on this
// worker. It does not flip back to false after Stop: it answers "has this
// worker been started at least once", which is what callers need to know
// before relying on state that only the running loop is meant to mutate.
func (w *Worker) Started() bool {
	w.startMu.Lock()
	defer w.startMu.Unlock()
	return w.started
}

// ForceHighPriority drives the priority back to High, e.g. in response to
// an explicit Reseed() request from the facade.
func (w *Worker) ForceHighPriority() {
	w.mu.Lock()
	w.priority = High
	w.mu.Unlock()
}

// AddReseedListener registers f to be invoked on the worker goroutine after
// every successful reseed, once the PRNG lock has been released. Per
// spec.md §6, listeners must be fast and non-blocking; a panicking listener
// is recovered so it cannot take down the worker.
func (w *Worker) AddReseedListener(f func()) {
	w.listenersMu.Lock()
	defer w.listenersMu.Unlock()
	w.listeners = append(w.listeners, f)
}

// Wake requests an immediate reseed attempt on the worker's next cycle,
// without waiting out the current inter-cycle sleep. It is non-blocking.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Start launches the worker loop in a new goroutine and returns
// immediately. Calling Start on an already-started Worker returns
// ErrAlreadyStarted without affecting the running loop.
func (w *Worker) Start(ctx context.Context) error {
	w.startMu.Lock()
	defer w.startMu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}
	w.started = true

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		w.run(runCtx)
	}()
	return nil
}

// RequestStop signals the worker to stop without waiting for it to exit.
func (w *Worker) RequestStop() {
	w.startMu.Lock()
	cancel := w.cancel
	w.startMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Stop signals the worker to stop and blocks until its loop has exited.
// Calling Stop before Start, or twice, is a safe no-op.
func (w *Worker) Stop() {
	w.RequestStop()
	w.startMu.Lock()
	done := w.done
	w.startMu.Unlock()
	if done != nil {
		<-done
	}
}

func (w *Worker) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		w.runCycle(ctx)
	}
}

func (w *Worker) runCycle(ctx context.Context) {
	w.cycle++
	sources := w.registry.Snapshot()
	if len(sources) == 0 {
		w.sleep(ctx, w.cfg.EmptySourcesSleep)
		return
	}

	w.shuffleInPlace(sources)

	priority := w.Priority()
	toPoll := w.selectSourcesForThisCycle(sources)

	type result struct {
		src  entropysource.Source
		data []byte
		err  error
	}
	results := make([]result, len(toPoll))

	bound := w.cfg.ParallelPollBound
	if bound <= 1 {
		for i, src := range toPoll {
			if ctx.Err() != nil {
				return
			}
			data, err := pollSafely(ctx, src, priority)
			results[i] = result{src, data, err}
		}
	} else {
		sem := make(chan struct{}, bound)
		var wg sync.WaitGroup
		for i, src := range toPoll {
			if ctx.Err() != nil {
				break
			}
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, src entropysource.Source) {
				defer wg.Done()
				defer func() { <-sem }()
				data, err := pollSafely(ctx, src, priority)
				results[i] = result{src, data, err}
			}(i, src)
		}
		wg.Wait()
	}

	// Results are added to the accumulator in the same (shuffled) order
	// the sources were polled in, after every outstanding poll in this
	// cycle's batch has completed; see spec.md §5 on parallel polling.
	for _, r := range results {
		if r.src == nil {
			continue
		}
		w.recordFaultOutcome(r.src.Name(), r.err)
		if r.err != nil || len(r.data) == 0 {
			continue
		}
		w.acc.Add(accumulator.Event{
			SourceFingerprint: fingerprint(fmt.Sprintf("%T/%s", r.src, r.src.Name())),
			Data:              r.data,
		})
	}

	if w.shouldReseed(ctx) {
		w.reseed()
	}

	w.sleep(ctx, w.sleepForPriority(priority))
}

// selectSourcesForThisCycle drops demoted sources that are not due for a
// poll on this cycle.
func (w *Worker) selectSourcesForThisCycle(sources []entropysource.Source) []entropysource.Source {
	if w.cfg.SourceFaultDemotionThreshold <= 0 {
		return sources
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]entropysource.Source, 0, len(sources))
	for _, src := range sources {
		fs := w.faults[src.Name()]
		if fs == nil || fs.consecutive < w.cfg.SourceFaultDemotionThreshold {
			out = append(out, src)
			continue
		}
		if w.cycle-fs.lastPollCycle >= demotionCadence {
			out = append(out, src)
		}
	}
	return out
}

func (w *Worker) recordFaultOutcome(name string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	fs := w.faults[name]
	if fs == nil {
		fs = &faultState{}
		w.faults[name] = fs
	}
	fs.lastPollCycle = w.cycle
	if err != nil {
		fs.consecutive++
	} else {
		fs.consecutive = 0
	}
}

// pollSafely polls one source, converting a panic into a SourceFault-style
// error so a misbehaving source can never take down the worker.
func pollSafely(ctx context.Context, src entropysource.Source, priority Priority) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: source %q panicked: %v", src.Name(), r)
		}
	}()
	return src.GetEntropy(ctx, priority)
}

func fingerprint(name string) uint64 {
	// FNV-1a, matching the "hash of source type + instance name" fingerprint
	// described in spec.md §3. A full cryptographic hash is unnecessary
	// here: the fingerprint only needs to be stable and well-distributed
	// enough to avoid accidental collisions between concurrently
	// registered sources, not to resist an adversary.
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for i := 0; i < len(name); i++ {
		h ^= uint64(name[i])
		h *= prime64
	}
	return h
}

// shuffleInPlace performs a Fisher-Yates shuffle of the source snapshot
// using the worker's cheap-key cipher PRNG, so that no fixed position in
// the poll order (in particular, not the last slot) has outsized influence
// over the accumulator state produced by a cycle. See spec.md §4.4 step 3.
func (w *Worker) shuffleInPlace(sources []entropysource.Source) {
	n := len(sources)
	for i := n - 1; i > 0; i-- {
		j := w.randIntn(i + 1)
		sources[i], sources[j] = sources[j], sources[i]
	}
}

// randIntn draws a uniform value in [0, n) from the shuffle generator,
// using rejection sampling over 4-byte draws to avoid modulo bias.
func (w *Worker) randIntn(n int) int {
	if n <= 1 {
		return 0
	}
	max := uint32(n)
	limit := (^uint32(0) / max) * max
	var buf [4]byte
	for {
		if err := w.shuffle.Generate(buf[:], 0, 4); err != nil {
			// The cheap-key generator is always seeded and 4 bytes never
			// exceeds MaxBytesPerRequest; this cannot happen.
			panic(err)
		}
		v := binary.BigEndian.Uint32(buf[:])
		if v < limit {
			return int(v % max)
		}
	}
}

func (w *Worker) sleepForPriority(p Priority) time.Duration {
	switch p {
	case High:
		return w.cfg.HighSleep
	case Normal:
		return w.cfg.NormalSleep
	default:
		return w.cfg.LowSleep
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	case <-w.wake:
	}
}

// shouldReseed implements the reseed predicate of spec.md §4.4: false if
// stop has been requested; otherwise gated on the priority-specific entropy
// threshold and, if configured, a minimum inter-reseed interval.
func (w *Worker) shouldReseed(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}

	w.mu.Lock()
	priority := w.priority
	last := w.lastReseed
	w.mu.Unlock()

	if w.cfg.MinReseedInterval > 0 && !last.IsZero() && time.Since(last) < w.cfg.MinReseedInterval {
		return false
	}

	switch priority {
	case High:
		return w.acc.PoolZeroEntropyBytesSinceLastSeed() > w.cfg.HighPoolZeroThreshold
	case Normal:
		return w.acc.MinPoolEntropyBytesSinceLastSeed() > w.cfg.NormalMinPoolThreshold
	default:
		return w.acc.MinPoolEntropyBytesSinceLastSeed() > w.cfg.LowMinPoolThreshold
	}
}

// reseed drains the accumulator, mixes the result into the cipher PRNG,
// zeroes the seed buffer, demotes High to Normal, and fires listeners.
// Per the locking discipline of spec.md §5, the accumulator lock is
// released (NextSeed already returned) before the PRNG lock is taken.
func (w *Worker) reseed() {
	seed := w.acc.NextSeed()
	defer zero(seed)

	w.prng.Reseed(seed)

	w.mu.Lock()
	if w.priority == High {
		w.priority = Normal
	}
	w.lastReseed = time.Now()
	w.mu.Unlock()

	if w.onReseed != nil {
		w.onReseed()
	}

	w.listenersMu.Lock()
	listeners := make([]func(), len(w.listeners))
	copy(listeners, w.listeners)
	w.listenersMu.Unlock()

	for _, l := range listeners {
		invokeListener(l)
	}
}

func invokeListener(l func()) {
	defer func() {
		_ = recover() // a listener must never take down the worker.
	}()
	l()
}

func zero(bs []byte) {
	for i := range bs {
		bs[i] = 0
	}
}
