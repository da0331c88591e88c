//go:build linux

package pthread

import "testing"

func TestProbeRobustList(t *testing.T) {
	outcome, err := probeRobustList()
	if err != nil {
		t.Fatalf("probeRobustList: %v", err)
	}
	if outcome != probeApplied && outcome != probeUnsupported {
		t.Errorf("outcome = %d, want applied or unsupported", outcome)
	}
}

func TestLiveThreads(t *testing.T) {
	n, err := liveThreads()
	if err != nil {
		t.Fatalf("liveThreads: %v", err)
	}
	if n == 0 {
		t.Error("liveThreads = 0, want at least one")
	}
}

func TestThreadLimit(t *testing.T) {
	limit := threadLimit()
	if limit == 0 {
		t.Error("threadLimit = 0, want a positive ceiling")
	}
	if limit > goMaxThreads {
		t.Errorf("threadLimit = %d, want at most the runtime cap %d", limit, goMaxThreads)
	}
}

func TestPokeNamespaceIsBestEffort(t *testing.T) {
	// Must return regardless of privilege; unprivileged setns fails and
	// that failure is part of the exercise.
	pokeNamespace()

	if _, err := liveThreads(); err != nil {
		t.Fatalf("liveThreads after poke: %v", err)
	}
}

func TestGettid(t *testing.T) {
	if gettid() == 0 {
		t.Error("gettid = 0, want the calling thread's id")
	}
}
