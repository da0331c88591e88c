package store

import (
	"context"
	"errors"

	"github.com/seantiz/magma/internal/model"
)

// ErrNotFound is returned when a run is not found.
var ErrNotFound = errors.New("run not found")

// Store defines the persistence operations for stress run records.
type Store interface {
	InsertRun(ctx context.Context, r *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*model.Run, int, error)
	Close() error
}
