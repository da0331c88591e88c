//go:build linux

package pthread

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// probeOutcome is the tagged result of the robust-list probe. A kernel
// that lacks the interface is a distinct non-error outcome, not a failure.
type probeOutcome int

const (
	probeApplied probeOutcome = iota
	probeUnsupported
)

// probeRobustList queries the calling thread's robust-list head and, when
// the query succeeds, registers the same pointer and length straight back.
// The result is never used for anything: the point is to exercise the
// kernel interface while threads churn.
func probeRobustList() (probeOutcome, error) {
	var (
		head    uintptr
		headLen uintptr
	)
	if _, _, errno := unix.Syscall(unix.SYS_GET_ROBUST_LIST,
		0, uintptr(unsafe.Pointer(&head)), uintptr(unsafe.Pointer(&headLen))); errno != 0 {
		if errno == unix.ENOSYS {
			return probeUnsupported, nil
		}
		return 0, fmt.Errorf("get_robust_list: %w", errno)
	}

	if _, _, errno := unix.Syscall(unix.SYS_SET_ROBUST_LIST,
		head, headLen, 0); errno != 0 {
		if errno == unix.ENOSYS {
			return probeUnsupported, nil
		}
		return 0, fmt.Errorf("set_robust_list: %w", errno)
	}

	return probeApplied, nil
}
