// Package stress provides the harness that drives stressor instances: the
// shared argument bundle and operation counter, the stressor registry, and
// the runner that executes instances in parallel and records their outcomes.
package stress
