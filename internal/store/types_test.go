package store

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestRunRecord_JSONFieldNames(t *testing.T) {
	rec := createTestRun("json-run")

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	body := string(data)
	for _, key := range []string{`"id"`, `"config"`, `"bestPosition"`, `"bestScore"`, `"history"`, `"iterations"`, `"timestamp"`} {
		if !strings.Contains(body, key) {
			t.Errorf("Expected key %s in %s", key, body)
		}
	}
	if strings.Contains(body, `"stopped"`) {
		t.Error("Empty Stopped should be omitted")
	}
}

func TestRunRecord_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunRecord)
		field  string
	}{
		{"empty id", func(r *RunRecord) { r.ID = "" }, "ID"},
		{"zero dim", func(r *RunRecord) { r.Config.Dim = 0 }, "Config.Dim"},
		{"short position", func(r *RunRecord) { r.BestPosition = r.BestPosition[:2] }, "BestPosition"},
		{"nan score", func(r *RunRecord) { r.BestScore = math.NaN() }, "BestScore"},
		{"inf history", func(r *RunRecord) { r.History[0] = math.Inf(1) }, "History"},
		{"negative iterations", func(r *RunRecord) { r.Iterations = -1 }, "Iterations"},
		{"history length", func(r *RunRecord) { r.History = r.History[:1] }, "History"},
		{"zero timestamp", func(r *RunRecord) { r.Timestamp = time.Time{} }, "Timestamp"},
	}

	if err := createTestRun("ok").Validate(); err != nil {
		t.Fatalf("Valid record rejected: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := createTestRun("r")
			tt.mutate(rec)

			err := rec.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, verr.Field)
			}
		})
	}
}

func TestRunRecord_ZeroIterations(t *testing.T) {
	rec := createTestRun("zero")
	rec.History = nil
	rec.Iterations = 0

	if err := rec.Validate(); err != nil {
		t.Errorf("A run with no iterations is valid, got %v", err)
	}
}

func TestRunRecord_ToInfo(t *testing.T) {
	rec := createTestRun("info")
	info := rec.ToInfo()

	if info.ID != "info" || info.Variant != rec.Config.Variant || info.Objective != rec.Config.Objective {
		t.Errorf("Identity fields not copied: %+v", info)
	}
	if info.Dim != 3 || info.Iterations != 3 || info.BestScore != rec.BestScore {
		t.Errorf("Numeric fields not copied: %+v", info)
	}
	if !info.Timestamp.Equal(rec.Timestamp) {
		t.Errorf("Timestamp mismatch")
	}
}

func TestNewRunRecord(t *testing.T) {
	rec := createTestRun("src")
	fresh := NewRunRecord("fresh", rec.Config, rec.BestPosition, rec.BestScore, rec.History, rec.Iterations)

	if fresh.Timestamp.IsZero() {
		t.Error("NewRunRecord should stamp the time")
	}
	if err := fresh.Validate(); err != nil {
		t.Errorf("NewRunRecord produced invalid record: %v", err)
	}
}
