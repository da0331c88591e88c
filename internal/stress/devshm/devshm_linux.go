//go:build linux

package devshm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"golang.org/x/sys/unix"

	"github.com/seantiz/magma/internal/stress"
)

const (
	shmDir = "/dev/shm"

	// pageThresh is the fallocate growth quantum; the size search stops
	// once the step falls below it.
	pageThresh = 16 << 20
)

// Stressor fills /dev/shm by growing an unlinked file with fallocate,
// mapping it, and touching every page, over and over.
type Stressor struct {
	iterations uint64
	limited    uint64
}

// New creates a /dev/shm stressor.
func New() *Stressor {
	return &Stressor{}
}

// Info implements stress.Stressor.
func (s *Stressor) Info() stress.Info {
	return stress.Info{Name: "devshm", Class: "vm,os"}
}

// Iterations reports iteration statistics for run records.
func (s *Stressor) Iterations() (attempted, limited uint64) {
	return s.iterations, s.limited
}

// Run implements stress.Stressor. A missing or inaccessible /dev/shm is a
// skip, not a failure: the kernel may simply not have it configured.
func (s *Stressor) Run(ctx context.Context, args *stress.Args) error {
	if err := unix.Access(shmDir, unix.R_OK|unix.W_OK); err != nil {
		args.Logger.Info("cannot access /dev/shm, skipping", "error", err)
		return nil
	}

	// Make sure this is killable by the OOM killer ahead of better
	// behaved processes.
	adjustOOMScore(args.Logger)

	path := fmt.Sprintf("%s/magma-devshm-%d-%d-%x", shmDir, args.Instance, args.PID, rand.Uint32())
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0600)
	if err != nil {
		args.Logger.Info("cannot create shm file, skipping", "path", path, "error", err)
		return nil
	}
	defer unix.Close(fd)
	// Unlink up front; the fd keeps the space alive.
	_ = unix.Unlink(path)

	pageSize := os.Getpagesize()
	for args.KeepStressing(ctx) {
		if err := unix.Ftruncate(fd, 0); err != nil {
			return fmt.Errorf("ftruncate: %w", err)
		}

		sz, grew := growFile(ctx, args, fd, int64(pageSize))
		if !grew {
			s.limited++
		}
		if sz > 0 {
			touchMapping(fd, sz, pageSize)
			if err := unix.Ftruncate(fd, 0); err != nil {
				return fmt.Errorf("ftruncate: %w", err)
			}
		}

		s.iterations++
		args.Metrics.IncIteration(args.Name, args.Instance)
		if !grew {
			args.Metrics.IncLimited(args.Name, args.Instance)
		}
	}
	return nil
}

// growFile finds the largest fallocate-able size with a rough doubling
// search. Deliberately not exact: mapping right at the limit can trip
// SIGBUS. Each successful grow counts as one operation.
func growFile(ctx context.Context, args *stress.Args, fd int, start int64) (int64, bool) {
	sz := start
	delta := int64(pageThresh)
	grew := false
	for args.KeepStressing(ctx) && delta >= pageThresh {
		if err := unix.Fallocate(fd, 0, 0, sz); err != nil {
			sz -= delta >> 1
			break
		}
		grew = true
		sz += delta
		delta <<= 1
		args.Counter.Inc()
		args.Metrics.IncOps(args.Name, args.Instance)
	}
	return sz, grew
}

// touchMapping maps the file and writes a random word into every page,
// then invalidates and unmaps. All best effort: under memory pressure any
// of these can fail and the next iteration just starts over.
func touchMapping(fd int, sz int64, pageSize int) {
	data, err := unix.Mmap(fd, 0, int(sz), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return
	}
	_ = unix.Madvise(data, unix.MADV_RANDOM)
	for off := 0; off+4 <= len(data); off += pageSize {
		binary.LittleEndian.PutUint32(data[off:], rand.Uint32())
	}
	_ = unix.Msync(data, unix.MS_INVALIDATE)
	_ = unix.Munmap(data)
}

// adjustOOMScore raises the process's OOM score so the kernel reclaims
// this stressor first. Best effort.
func adjustOOMScore(logger *slog.Logger) {
	if err := os.WriteFile("/proc/self/oom_score_adj", []byte("900"), 0644); err != nil &&
		!errors.Is(err, os.ErrPermission) {
		logger.Debug("oom score adjustment failed", "error", err)
	}
}
