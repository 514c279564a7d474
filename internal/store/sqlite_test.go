package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	original := createTestRun("sql-run")
	if err := s.SaveRun(ctx, original); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	loaded, err := s.LoadRun(ctx, "sql-run")
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if loaded.BestScore != original.BestScore {
		t.Errorf("BestScore mismatch: expected %f, got %f", original.BestScore, loaded.BestScore)
	}
	if loaded.Config != original.Config {
		t.Errorf("Config mismatch: expected %+v, got %+v", original.Config, loaded.Config)
	}
	if len(loaded.History) != 3 {
		t.Errorf("Expected 3 history entries, got %d", len(loaded.History))
	}
}

func TestSQLiteStore_Upsert(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	rec := createTestRun("sql-upsert")
	if err := s.SaveRun(ctx, rec); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	rec.BestScore = 0.0001
	rec.History[2] = 0.0001
	if err := s.SaveRun(ctx, rec); err != nil {
		t.Fatalf("second SaveRun failed: %v", err)
	}

	infos, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(infos))
	}
	if infos[0].BestScore != 0.0001 {
		t.Errorf("Expected updated score, got %f", infos[0].BestScore)
	}
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 3; i++ {
		rec := createTestRun(fmt.Sprintf("sql-%d", i))
		rec.Timestamp = base.Add(time.Duration(i) * time.Second)
		if err := s.SaveRun(ctx, rec); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	infos, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 3 || infos[0].ID != "sql-2" || infos[2].ID != "sql-0" {
		t.Errorf("Unexpected order: %+v", infos)
	}
	if infos[0].Variant != "continuous" || infos[0].Objective != "sphere" || infos[0].Dim != 3 {
		t.Errorf("Summary columns not populated: %+v", infos[0])
	}
}

func TestSQLiteStore_NotFound(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	if _, err := s.LoadRun(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadRun: expected NotFoundError, got %v", err)
	}
	if err := s.DeleteRun(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteRun: expected NotFoundError, got %v", err)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, createTestRun("sql-del")); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := s.DeleteRun(ctx, "sql-del"); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := s.LoadRun(ctx, "sql-del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected NotFoundError after delete, got %v", err)
	}
}

func TestSQLiteStore_Uninitialized(t *testing.T) {
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "x.db"))

	if err := s.SaveRun(context.Background(), createTestRun("r")); err == nil {
		t.Error("Expected error from uninitialized store")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close on uninitialized store failed: %v", err)
	}
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fs, err := NewStore(ctx, "fs", filepath.Join(dir, "data"))
	if err != nil {
		t.Fatalf("fs backend: %v", err)
	}
	if _, ok := fs.(*FSStore); !ok {
		t.Errorf("Expected *FSStore, got %T", fs)
	}
	if err := CloseIfSupported(fs); err != nil {
		t.Errorf("CloseIfSupported(fs) failed: %v", err)
	}

	sq, err := NewStore(ctx, "sqlite", filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	if _, ok := sq.(*SQLiteStore); !ok {
		t.Errorf("Expected *SQLiteStore, got %T", sq)
	}
	if err := CloseIfSupported(sq); err != nil {
		t.Errorf("CloseIfSupported(sqlite) failed: %v", err)
	}

	if _, err := NewStore(ctx, "redis", dir); err == nil {
		t.Error("Expected error for unknown backend")
	}
}
