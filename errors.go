package terninger

import "errors"

// ErrDisposed is returned by AddSource, Start, StartAndWaitForNthSeed,
// Reseed, and Fill when called after Dispose. A repeated Dispose returns nil.
var ErrDisposed = errors.New("terninger: generator has been disposed")

// ErrNotStarted is returned by Reseed when called before Start.
var ErrNotStarted = errors.New("terninger: generator has not been started")
