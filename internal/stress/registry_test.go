package stress_test

import (
	"context"
	"testing"

	"github.com/seantiz/magma/internal/stress"
)

// stubStressor is a minimal Stressor for registry tests.
type stubStressor struct {
	name string
}

func (s *stubStressor) Info() stress.Info {
	return stress.Info{Name: s.name, Class: "os"}
}

func (s *stubStressor) Run(_ context.Context, _ *stress.Args) error {
	return nil
}

func TestRegistryRegisterAndList(t *testing.T) {
	reg := stress.NewRegistry()

	reg.Register("pthread", func() stress.Stressor { return &stubStressor{name: "pthread"} })
	reg.Register("devshm", func() stress.Stressor { return &stubStressor{name: "devshm"} })

	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("List() returned %d stressors, want 2", len(list))
	}
	// Sorted by name.
	if list[0].Name != "devshm" || list[1].Name != "pthread" {
		t.Errorf("List() order = [%s %s], want [devshm pthread]", list[0].Name, list[1].Name)
	}
}

func TestRegistryResolve(t *testing.T) {
	reg := stress.NewRegistry()
	reg.Register("pthread", func() stress.Stressor { return &stubStressor{name: "pthread"} })

	s, err := reg.Resolve("pthread")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Info().Name != "pthread" {
		t.Errorf("resolved stressor name = %q, want %q", s.Info().Name, "pthread")
	}
}

func TestRegistryResolveFreshInstances(t *testing.T) {
	reg := stress.NewRegistry()
	reg.Register("pthread", func() stress.Stressor { return &stubStressor{name: "pthread"} })

	a, _ := reg.Resolve("pthread")
	b, _ := reg.Resolve("pthread")
	if a == b {
		t.Error("Resolve returned the same instance twice, want fresh values")
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	reg := stress.NewRegistry()

	if _, err := reg.Resolve("nope"); err == nil {
		t.Error("Resolve of unregistered stressor succeeded, want error")
	}
}
