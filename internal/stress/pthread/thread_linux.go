//go:build linux

package pthread

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// blockSignals masks all signal delivery for the calling thread. Best
// effort: a failure leaves the worker a little noisier, nothing more.
func blockSignals() {
	var all unix.Sigset_t
	for i := range all.Val {
		all.Val[i] = ^uint64(0)
	}
	_ = unix.PthreadSigmask(unix.SIG_BLOCK, &all, nil)
}

// ssDisable mirrors the kernel's SS_DISABLE sigaltstack flag.
const ssDisable = 0x2

// stackT mirrors the kernel's struct sigaltstack on 64-bit Linux.
type stackT struct {
	ssSp    uintptr
	ssFlags int32
	_       int32
	ssSize  uintptr
}

// ensureSigStack checks that the calling thread has an alternate signal
// stack and installs buf as one when it is missing. The Go runtime
// normally provides a per-thread stack already, so installation is the
// rare path.
func ensureSigStack(buf []byte) error {
	var cur stackT
	if _, _, errno := unix.Syscall(unix.SYS_SIGALTSTACK,
		0, uintptr(unsafe.Pointer(&cur)), 0); errno != 0 {
		return fmt.Errorf("query: %w", errno)
	}
	if cur.ssFlags&ssDisable == 0 && cur.ssSp != 0 {
		return nil
	}

	alt := stackT{
		ssSp:   uintptr(unsafe.Pointer(&buf[0])),
		ssSize: uintptr(len(buf)),
	}
	if _, _, errno := unix.Syscall(unix.SYS_SIGALTSTACK,
		uintptr(unsafe.Pointer(&alt)), 0, 0); errno != 0 {
		return fmt.Errorf("install: %w", errno)
	}
	return nil
}

// gettid returns the OS thread id of the calling thread.
func gettid() int {
	return unix.Gettid()
}

// nudgeThread sends SIGUSR2 to one thread of the process. Purely a
// best-effort wake for workers blocked in non-cancellable states.
func nudgeThread(pid, tid int) {
	_ = unix.Tgkill(pid, tid, unix.SIGUSR2)
}

// pokeNamespace re-enters the current UTS namespace via setns. Without
// CAP_SYS_ADMIN the call fails; the point is driving the kernel's
// namespace paths from a thread that just woke under churn, so the
// result is ignored.
func pokeNamespace() {
	fd, err := unix.Open("/proc/self/ns/uts", unix.O_RDONLY, 0)
	if err != nil {
		return
	}
	_ = unix.Setns(fd, 0)
	_ = unix.Close(fd)
}

// threadSlack is the margin kept below the thread ceiling so the Go
// runtime always has room for its own threads.
const threadSlack = 64

// goMaxThreads is the runtime's default thread ceiling; crossing it does
// not fail politely, it aborts the process.
const goMaxThreads = 10000

// threadHeadroom reports ErrNoResource when creating one more OS thread
// would push the process into its thread ceiling. Go has no recoverable
// thread-create failure, so exhaustion has to be detected before the
// fact.
func threadHeadroom() error {
	cur, err := liveThreads()
	if err != nil {
		// Can't tell; let the spawn proceed.
		return nil
	}
	limit := threadLimit()
	if cur+threadSlack >= limit {
		return fmt.Errorf("%w: %d of %d threads in use", ErrNoResource, cur, limit)
	}
	return nil
}

// liveThreads returns the current thread count of the process.
func liveThreads() (uint64, error) {
	data, err := os.ReadFile("/proc/self/status")
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if v, ok := strings.CutPrefix(line, "Threads:"); ok {
			return strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		}
	}
	return 0, fmt.Errorf("no Threads line in /proc/self/status")
}

// threadLimit returns the lowest applicable thread ceiling: the runtime's
// own cap, RLIMIT_NPROC, and the kernel's threads-max.
func threadLimit() uint64 {
	limit := uint64(goMaxThreads)

	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NPROC, &rl); err == nil &&
		rl.Cur != unix.RLIM_INFINITY && rl.Cur < limit {
		limit = rl.Cur
	}

	if data, err := os.ReadFile("/proc/sys/kernel/threads-max"); err == nil {
		if v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64); err == nil && v < limit {
			limit = v
		}
	}

	return limit
}
