// Package pthread implements the thread-churn stressor: every iteration
// spawns a burst of OS threads that register themselves and park on a
// shared condition variable, then mass-wakes and joins them, repeating as
// fast as the scheduler allows. Threads do no useful work; the load is
// the creation and teardown itself, aimed at surfacing scheduler,
// allocator, and resource-limit defects in the kernel underneath.
package pthread
