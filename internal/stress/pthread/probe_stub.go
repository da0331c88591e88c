//go:build !linux

package pthread

type probeOutcome int

const (
	probeApplied probeOutcome = iota
	probeUnsupported
)

// probeRobustList is Linux-only; elsewhere the probe reports unsupported,
// which is success-equivalent.
func probeRobustList() (probeOutcome, error) {
	return probeUnsupported, nil
}
