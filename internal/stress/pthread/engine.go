package pthread

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/seantiz/magma/internal/stress"
)

// Thread count bounds enforced on the CLI option.
const (
	MinThreads = 1
	MaxThreads = 30000
)

// barrierRetries bounds the poll for workers to finish registering. The
// poll is advisory: workers that failed before registering never bump the
// count, so the engine proceeds to termination either way.
const barrierRetries = 1000

// ErrNoResource reports that no more OS threads can be created. It is an
// expected outcome under stress, not a failure.
var ErrNoResource = errors.New("no more thread resources")

// Engine churns OS threads: each iteration spawns up to max threads that
// register themselves and park on a shared condition variable, then wakes
// and joins them all, as fast as the scheduler allows.
type Engine struct {
	max   int
	state *runState
	slots []*workerRecord

	attempted uint64
	limited   uint64

	// spawn and nudge are replaceable in tests. Defaults: a goroutine
	// pinned to a fresh OS thread, and a SIGUSR2 tgkill.
	spawn func(args *stress.Args, slot *workerRecord) error
	nudge func(pid, tid int)
}

// New creates a thread-churn engine that spawns up to max threads per
// iteration.
func New(max int) *Engine {
	e := &Engine{
		max:   max,
		state: newRunState(),
		slots: make([]*workerRecord, max),
	}
	for i := range e.slots {
		e.slots[i] = &workerRecord{}
	}
	e.spawn = e.spawnThread
	e.nudge = nudgeThread
	return e
}

// Info implements stress.Stressor.
func (e *Engine) Info() stress.Info {
	return stress.Info{Name: "pthread", Class: "scheduler,os"}
}

// Iterations reports how many iterations ran and how many of them were
// limited by thread resource exhaustion.
func (e *Engine) Iterations() (attempted, limited uint64) {
	return e.attempted, e.limited
}

// Run implements stress.Stressor. It loops iterations of
// spawn/register/broadcast/join until the harness budget is exhausted or a
// synchronization failure makes further iterations unsafe. Partial thread
// sets are always reaped before the loop ends.
func (e *Engine) Run(ctx context.Context, args *stress.Args) error {
	// The termination nudge hits every worker with SIGUSR2; the process
	// must shrug those off.
	signal.Ignore(syscall.SIGUSR2)

	var runErr error
	for runErr == nil && args.KeepStressing(ctx) {
		runErr = e.iterate(ctx, args)
	}

	if e.limited > 0 {
		args.Logger.Info(fmt.Sprintf(
			"%.2f%% of iterations could not reach requested %d threads (instance %d)",
			100.0*float64(e.limited)/float64(e.attempted), e.max, args.Instance))
	}
	return runErr
}

// iterate runs a single spawn/barrier/broadcast/join cycle.
func (e *Engine) iterate(ctx context.Context, args *stress.Args) error {
	// Reset happens-before any spawn, and happens-after the previous
	// iteration's join reaped every worker.
	e.state.reset()
	for _, slot := range e.slots {
		slot.reset()
	}

	var (
		created     int
		iterLimited bool
		runErr      error
	)
	for i := 0; i < e.max && args.KeepStressing(ctx); i++ {
		if err := e.spawn(args, e.slots[i]); err != nil {
			if errors.Is(err, ErrNoResource) {
				// Out of resources, don't try any more this iteration.
				iterLimited = true
				break
			}
			args.Logger.Error("thread create", "thread", i, "error", err)
			runErr = fmt.Errorf("create thread %d: %w", i, err)
			break
		}
		created++
		args.Counter.Inc()
		args.Metrics.IncOps(args.Name, args.Instance)
	}

	e.attempted++
	if iterLimited {
		e.limited++
	}
	args.Metrics.SetThreadsRunning(args.Name, args.Instance, float64(created))

	// Wait until the workers have all registered, or we get bored waiting.
	// The comparand is the number of threads actually created, not the
	// number requested: workers that never came up can never report in.
	if runErr == nil {
		for j := 0; j < barrierRetries; j++ {
			n, err := e.state.runningCount()
			if err != nil {
				args.Logger.Error("barrier poll", "error", err)
				runErr = fmt.Errorf("barrier poll: %w", err)
				break
			}
			if n == uint64(created) {
				break
			}
			runtime.Gosched()
		}
	}

	// Reap unconditionally: even after a failure, every spawned thread is
	// woken and joined rather than abandoned.
	if err := e.reap(args, created); err != nil && runErr == nil {
		runErr = err
	}

	args.Metrics.IncIteration(args.Name, args.Instance)
	if iterLimited {
		args.Metrics.IncLimited(args.Name, args.Instance)
	}
	args.Metrics.SetThreadsRunning(args.Name, args.Instance, 0)

	return runErr
}

// reap broadcasts termination and joins every spawned thread in spawn
// order. The broadcast always precedes the join: a parked worker can only
// exit once it observes the terminate flag.
func (e *Engine) reap(args *stress.Args, created int) error {
	err := e.broadcastTerminate(args, created)
	if err != nil {
		args.Logger.Error("terminate broadcast", "error", err)
	}
	for j := 0; j < created; j++ {
		<-e.slots[j].done
	}
	return err
}

// broadcastTerminate executes the wake sequence as one critical section:
// nudge every worker with a recorded thread id, set the terminate flag,
// then broadcast. The flag write and the broadcast both happen under the
// mutex, so a waking worker can never observe a stale false flag.
//
// The wake still goes out when the fault hook reports a lock failure: the
// join phase depends on every parked worker being released, so the
// sequence completes and the error is returned for accounting.
func (e *Engine) broadcastTerminate(args *stress.Args, created int) error {
	hookErr := e.state.hook(opBroadcastLock)

	e.state.mu.Lock()
	for j := 0; j < created; j++ {
		// Best-effort nudge for workers stuck short of the wait loop.
		if tid := e.slots[j].tid.Load(); tid != 0 {
			e.nudge(args.PID, int(tid))
		}
	}
	e.state.terminate = true
	e.state.cond.Broadcast()
	e.state.mu.Unlock()

	if hookErr != nil {
		return hookErr
	}
	return e.state.hook(opBroadcastUnlock)
}

// spawnThread starts a worker on a dedicated OS thread. The goroutine pins
// itself and never unpins: the runtime then destroys the thread when the
// goroutine exits, which is exactly the churn this stressor exists to
// generate. Go has no recoverable thread-create failure (the runtime
// aborts the process instead), so exhaustion is detected up front from the
// process's thread headroom.
func (e *Engine) spawnThread(args *stress.Args, slot *workerRecord) error {
	if err := threadHeadroom(); err != nil {
		return err
	}
	go func() {
		runtime.LockOSThread()
		e.runWorker(args, slot)
	}()
	return nil
}
