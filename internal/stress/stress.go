package stress

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/seantiz/magma/internal/metrics"
)

// Info describes a stressor for registry listings.
type Info struct {
	Name  string `json:"name"`
	Class string `json:"class"`
}

// Stressor is the interface every stress generator implements. Run applies
// load until the context is canceled or the operation cap is reached, and
// returns an error only for unexpected failures; hitting a resource limit
// is part of normal operation.
type Stressor interface {
	Info() Info
	Run(ctx context.Context, args *Args) error
}

// Counter is an operation counter shared between a stressor and the
// harness. A cap of 0 means unlimited.
type Counter struct {
	n   atomic.Uint64
	cap uint64
}

// NewCounter creates a counter that reports Capped once max operations
// have been recorded. max of 0 disables the cap.
func NewCounter(max uint64) *Counter {
	return &Counter{cap: max}
}

// Inc records one completed operation.
func (c *Counter) Inc() {
	c.n.Add(1)
}

// Count returns the number of operations recorded so far.
func (c *Counter) Count() uint64 {
	return c.n.Load()
}

// Capped reports whether the operation budget is exhausted.
func (c *Counter) Capped() bool {
	return c.cap > 0 && c.n.Load() >= c.cap
}

// Args is the per-run argument bundle handed to every stressor instance.
type Args struct {
	Name     string
	Instance uint32
	PID      int
	Counter  *Counter
	Logger   *slog.Logger
	Metrics  *metrics.Stress
}

// KeepStressing reports whether the stressor should continue: false once
// the context is done or the operation budget is exhausted. Stressors
// consult it cooperatively at the top of their work loops.
func (a *Args) KeepStressing(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}
	return !a.Counter.Capped()
}
