//go:build !linux

package pthread

// Platforms without the Linux signal and thread interfaces skip those
// steps; the churn loop itself is portable.

func blockSignals() {}

func ensureSigStack(_ []byte) error { return nil }

func gettid() int { return 0 }

func nudgeThread(_, _ int) {}

func pokeNamespace() {}

func threadHeadroom() error { return nil }
