package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/seantiz/magma/internal/model"
	"github.com/seantiz/magma/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestRun(stressor string, instance uint32) *model.Run {
	now := time.Now().UTC()
	return &model.Run{
		ID:         model.NewID(),
		Stressor:   stressor,
		Instance:   instance,
		Status:     model.StatusCompleted,
		Ops:        128,
		Iterations: 4,
		Limited:    1,
		StartedAt:  now.Add(-time.Second),
		FinishedAt: &now,
	}
}

func TestInsertAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := newTestRun("pthread", 0)
	if err := s.InsertRun(ctx, want); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}

	got, err := s.GetRun(ctx, want.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Stressor != want.Stressor {
		t.Errorf("Stressor = %q, want %q", got.Stressor, want.Stressor)
	}
	if got.Ops != want.Ops {
		t.Errorf("Ops = %d, want %d", got.Ops, want.Ops)
	}
	if got.Limited != want.Limited {
		t.Errorf("Limited = %d, want %d", got.Limited, want.Limited)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("Status = %q, want %q", got.Status, model.StatusCompleted)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun(context.Background(), model.NewID())
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetRun error = %v, want ErrNotFound", err)
	}
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := uint32(0); i < 3; i++ {
		if err := s.InsertRun(ctx, newTestRun("pthread", i)); err != nil {
			t.Fatalf("InsertRun %d: %v", i, err)
		}
	}

	runs, total, err := s.ListRuns(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(runs) != 2 {
		t.Errorf("len(runs) = %d, want 2", len(runs))
	}
}

func TestOpenLocksDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "locked.db")

	first, err := store.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	defer first.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if _, err := store.Open(ctx, dbPath); err == nil {
		t.Error("second Open succeeded while lock held, want error")
	}
}
