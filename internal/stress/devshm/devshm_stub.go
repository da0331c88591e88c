//go:build !linux

package devshm

import (
	"context"

	"github.com/seantiz/magma/internal/stress"
)

// Stressor is Linux-only; elsewhere it logs a skip and exits cleanly.
type Stressor struct{}

// New creates a /dev/shm stressor.
func New() *Stressor {
	return &Stressor{}
}

// Info implements stress.Stressor.
func (s *Stressor) Info() stress.Info {
	return stress.Info{Name: "devshm", Class: "vm,os"}
}

// Run implements stress.Stressor.
func (s *Stressor) Run(_ context.Context, args *stress.Args) error {
	args.Logger.Info("devshm is Linux-only, skipping")
	return nil
}
