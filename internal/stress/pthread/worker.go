package pthread

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/seantiz/magma/internal/stress"
)

// sigStackSize matches the kernel's SIGSTKSZ.
const sigStackSize = 8 << 10

// workerRecord is one spawn slot. Slots are allocated once per engine and
// reused across iterations. The owning worker is the only writer of tid;
// the engine reads it for the termination nudge and clears it between
// iterations, never while that worker is running.
type workerRecord struct {
	tid  atomic.Int64 // OS thread id, 0 until the worker reports in
	done chan struct{}
}

// reset prepares the slot for the next iteration.
func (w *workerRecord) reset() {
	w.tid.Store(0)
	w.done = make(chan struct{})
}

// runWorker wraps the worker body: the done channel always closes so the
// engine's join succeeds whether the worker parked or bailed early, and
// worker-local failures are logged rather than propagated.
func (e *Engine) runWorker(args *stress.Args, slot *workerRecord) {
	defer close(slot.done)
	if err := e.worker(args, slot); err != nil {
		args.Logger.Error("worker terminated early", "error", err)
	}
}

// worker is the body every stressed thread runs: block signal delivery,
// ensure an alternate signal stack, report the thread id, poke the
// robust-list interface, register as running, then park until the engine
// broadcasts termination.
func (e *Engine) worker(args *stress.Args, slot *workerRecord) error {
	// Let the controlling thread handle external signals.
	blockSignals()

	// POSIX wants each thread to have a distinct alternate signal stack.
	// Failing to set one up is a startup failure: the worker exits without
	// registering, and the engine's barrier poll tolerates the shortfall.
	stack := make([]byte, sigStackSize)
	defer runtime.KeepAlive(stack)
	if err := ensureSigStack(stack); err != nil {
		return fmt.Errorf("sigaltstack: %w", err)
	}

	if tid := gettid(); tid != 0 {
		slot.tid.Store(int64(tid))
	}

	// Exercise the robust-list syscalls under churn. A kernel without them
	// is fine; any other failure is a synchronization-class error and the
	// worker exits unregistered.
	if _, err := probeRobustList(); err != nil {
		return fmt.Errorf("robust list probe: %w", err)
	}

	if err := e.state.register(); err != nil {
		return fmt.Errorf("register running: %w", err)
	}

	if err := e.state.awaitTerminate(); err != nil {
		return err
	}

	// One last syscall on the woken thread before it dies.
	pokeNamespace()
	return nil
}
