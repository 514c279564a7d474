package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/greywolf/internal/store"
)

func idsOf(infos []store.RunInfo) []string {
	ids := make([]string, len(infos))
	for i, info := range infos {
		ids[i] = info.ID
	}
	return ids
}

func testInfos(now time.Time) []store.RunInfo {
	return []store.RunInfo{
		{ID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{ID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{ID: "run3", Timestamp: now.AddDate(0, 0, -1)},
		{ID: "run4", Timestamp: now.AddDate(0, 0, -30)},
	}
}

func TestSelectRunsForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	got := idsOf(selectRunsForDeletion(testInfos(now), 0, 7, now))

	want := []string{"run4", "run1"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
		}
	}
}

func TestSelectRunsForDeletion_ByCount(t *testing.T) {
	now := time.Now()
	got := idsOf(selectRunsForDeletion(testInfos(now), 2, 0, now))

	want := []string{"run4", "run1"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
		}
	}
}

func TestSelectRunsForDeletion_Combined(t *testing.T) {
	now := time.Now()
	// Age selects run4 and run1, count selects run4 only. No duplicates.
	got := selectRunsForDeletion(testInfos(now), 3, 7, now)
	if len(got) != 2 {
		t.Errorf("Expected 2 runs to delete, got %v", idsOf(got))
	}
}

func TestSelectRunsForDeletion_NothingToDelete(t *testing.T) {
	now := time.Now()
	if got := selectRunsForDeletion(testInfos(now), 10, 0, now); len(got) != 0 {
		t.Errorf("Expected no deletions, got %v", idsOf(got))
	}
	if got := selectRunsForDeletion(testInfos(now), 0, 60, now); len(got) != 0 {
		t.Errorf("Expected no deletions, got %v", idsOf(got))
	}
}

func TestSelectRunsForDeletion_DoesNotReorderInput(t *testing.T) {
	now := time.Now()
	infos := testInfos(now)
	selectRunsForDeletion(infos, 1, 0, now)
	if infos[0].ID != "run1" || infos[3].ID != "run4" {
		t.Errorf("Input was reordered: %v", idsOf(infos))
	}
}

func TestGetDirSize(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a"), make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b"), make([]byte, 50), 0644); err != nil {
		t.Fatal(err)
	}

	size, err := getDirSize(dir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}
	if size != 150 {
		t.Errorf("Expected 150 bytes, got %d", size)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abc"); got != "abc" {
		t.Errorf("Expected abc, got %s", got)
	}
	if got := shortID("0123456789abcdef"); got != "0123456789ab..." {
		t.Errorf("Expected truncated id, got %s", got)
	}
}

func TestWriteTrace(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	entries := []store.TraceEntry{
		{Iteration: 0, BestScore: 12.5, Timestamp: start},
		{Iteration: 1, BestScore: 3.25, Timestamp: start.Add(1500 * time.Microsecond)},
	}

	var buf bytes.Buffer
	if err := writeTrace(&buf, entries); err != nil {
		t.Fatalf("writeTrace failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"ITERATION", "12.5", "3.25", "+1.5ms", "Trace entries: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}
