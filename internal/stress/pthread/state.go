package pthread

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Lock operation names used by the fault hook and in error messages.
const (
	opSpinLock        = "spin lock"
	opSpinUnlock      = "spin unlock"
	opBarrierLock     = "barrier mutex lock"
	opBarrierUnlock   = "barrier mutex unlock"
	opWaitLock        = "wait mutex lock"
	opWaitUnlock      = "wait mutex unlock"
	opBroadcastLock   = "broadcast mutex lock"
	opBroadcastUnlock = "broadcast mutex unlock"
)

// spinLock is a trivial CAS spinlock guarding the hot registration path.
// It is deliberately separate from the run state mutex: registration
// counting and termination signaling protect independent invariants, and
// sharing one lock would put the hot increment path in contention with
// the cold termination path.
type spinLock struct {
	state atomic.Uint32
}

func (l *spinLock) lock() {
	for !l.state.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}
}

func (l *spinLock) unlock() {
	l.state.Store(0)
}

// runState is the synchronization state shared between the engine and its
// workers for the duration of one engine run. It is reinitialized at the
// top of every iteration, strictly after all threads from the previous
// iteration have been joined.
type runState struct {
	mu        sync.Mutex
	cond      *sync.Cond
	spin      spinLock
	running   atomic.Uint64
	terminate bool // guarded by mu; transitions false->true once per iteration

	// lockErr simulates lock acquisition failures for the failure-path
	// tests. Go's sync primitives cannot fail, so the error taxonomy the
	// engine distinguishes is only reachable through this seam. Nil in
	// production.
	lockErr func(op string) error
}

func newRunState() *runState {
	s := &runState{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *runState) hook(op string) error {
	if s.lockErr == nil {
		return nil
	}
	return s.lockErr(op)
}

// reset clears the per-iteration state. Callers must guarantee no worker
// from a previous iteration can still observe it.
func (s *runState) reset() {
	s.mu.Lock()
	s.terminate = false
	s.mu.Unlock()
	s.running.Store(0)
}

// register bumps the count of running workers under the spinlock. The
// count itself is atomic so the engine's mutex-side barrier read does not
// race the spinlock-side increment.
func (s *runState) register() error {
	if err := s.hook(opSpinLock); err != nil {
		return err
	}
	s.spin.lock()
	s.running.Add(1)
	s.spin.unlock()
	return s.hook(opSpinUnlock)
}

// runningCount reads the registration count under the mutex, as the
// engine's barrier poll does.
func (s *runState) runningCount() (uint64, error) {
	if err := s.hook(opBarrierLock); err != nil {
		return 0, err
	}
	s.mu.Lock()
	n := s.running.Load()
	s.mu.Unlock()
	return n, s.hook(opBarrierUnlock)
}

// awaitTerminate parks the calling worker on the condition variable until
// the terminate flag is observed true. The flag check and the wait are
// atomic with respect to the broadcaster because both run under mu.
func (s *runState) awaitTerminate() error {
	if err := s.hook(opWaitLock); err != nil {
		return err
	}
	s.mu.Lock()
	for !s.terminate {
		s.cond.Wait()
		// Courtesy yield to spread the thundering herd after a broadcast.
		runtime.Gosched()
	}
	s.mu.Unlock()
	return s.hook(opWaitUnlock)
}
