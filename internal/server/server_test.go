package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/greywolf/internal/config"
	"github.com/cwbudde/greywolf/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.FSStore) {
	t.Helper()
	dir := t.TempDir()
	runStore, err := store.NewFSStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer(":0", runStore, dir)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s, runStore
}

func do(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func waitForState(t *testing.T, s *Server, jobID string) *Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, _ := s.jobManager.GetJob(jobID)
		if job.State.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Job %s did not finish", jobID)
	return nil
}

func TestServer_CreateJob(t *testing.T) {
	s, runStore := newTestServer(t)
	h := s.Handler()

	body, _ := json.Marshal(map[string]interface{}{
		"variant": "chaotic",
		"dim":     4,
		"popSize": 10,
		"iters":   20,
	})
	w := do(t, h, http.MethodPost, "/api/v1/jobs", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var job Job
	if err := json.NewDecoder(w.Body).Decode(&job); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if job.ID == "" {
		t.Fatal("Job ID should not be empty")
	}
	if job.Config.Objective != "sphere" || job.Config.Seed != 42 {
		t.Errorf("Missing fields should take defaults, got %+v", job.Config)
	}

	done := waitForState(t, s, job.ID)
	if done.State != StateCompleted {
		t.Fatalf("Expected completed, got %s (%s)", done.State, done.Error)
	}

	if _, err := runStore.LoadRun(context.Background(), job.ID); err != nil {
		t.Errorf("Completed run should be stored: %v", err)
	}
}

func TestServer_CreateJob_BadRequest(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	if w := do(t, h, http.MethodPost, "/api/v1/jobs", []byte("{oops")); w.Code != http.StatusBadRequest {
		t.Errorf("Invalid JSON: expected 400, got %d", w.Code)
	}

	body, _ := json.Marshal(map[string]interface{}{"variant": "wolfish"})
	if w := do(t, h, http.MethodPost, "/api/v1/jobs", body); w.Code != http.StatusBadRequest {
		t.Errorf("Invalid variant: expected 400, got %d", w.Code)
	}

	body, _ = json.Marshal(map[string]interface{}{"dim": 0})
	if w := do(t, h, http.MethodPost, "/api/v1/jobs", body); w.Code != http.StatusBadRequest {
		t.Errorf("Zero dim: expected 400, got %d", w.Code)
	}
}

func TestServer_ListJobs(t *testing.T) {
	s, _ := newTestServer(t)
	s.jobManager.CreateJob(config.Default(), nil)
	s.jobManager.CreateJob(config.Default(), nil)

	w := do(t, s.Handler(), http.MethodGet, "/api/v1/jobs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var jobs []Job
	if err := json.NewDecoder(w.Body).Decode(&jobs); err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(jobs))
	}
}

func TestServer_GetJobStatus(t *testing.T) {
	s, _ := newTestServer(t)
	job := s.jobManager.CreateJob(config.Default(), nil)

	for _, path := range []string{"/api/v1/jobs/" + job.ID, "/api/v1/jobs/" + job.ID + "/status"} {
		w := do(t, s.Handler(), http.MethodGet, path, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}

		var status map[string]interface{}
		if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
			t.Fatal(err)
		}
		if status["id"] != job.ID || status["state"] != string(StatePending) {
			t.Errorf("%s: unexpected status %v", path, status)
		}
	}
}

func TestServer_GetJobStatus_NotFound(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s.Handler(), http.MethodGet, "/api/v1/jobs/nonexistent/status", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServer_CancelJob(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	body, _ := json.Marshal(map[string]interface{}{"dim": 2, "popSize": 5, "iters": 1000000})
	w := do(t, h, http.MethodPost, "/api/v1/jobs", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", w.Code)
	}
	var job Job
	json.NewDecoder(w.Body).Decode(&job)

	if w := do(t, h, http.MethodDelete, "/api/v1/jobs/"+job.ID, nil); w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}

	done := waitForState(t, s, job.ID)
	if done.State != StateCancelled {
		t.Errorf("Expected cancelled, got %s", done.State)
	}

	if w := do(t, h, http.MethodDelete, "/api/v1/jobs/"+job.ID, nil); w.Code != http.StatusConflict {
		t.Errorf("Second cancel: expected 409, got %d", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/api/v1/jobs/ghost", nil); w.Code != http.StatusNotFound {
		t.Errorf("Unknown job: expected 404, got %d", w.Code)
	}
}

func TestServer_Convergence(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	pending := s.jobManager.CreateJob(config.Default(), nil)
	if w := do(t, h, http.MethodGet, "/api/v1/jobs/"+pending.ID+"/convergence.png", nil); w.Code != http.StatusNotFound {
		t.Errorf("Job without history: expected 404, got %d", w.Code)
	}

	cfg := smallConfig()
	job := s.jobManager.CreateJob(cfg, nil)
	if err := runJob(context.Background(), s.jobManager, nil, "", job.ID); err != nil {
		t.Fatal(err)
	}

	w := do(t, h, http.MethodGet, "/api/v1/jobs/"+job.ID+"/convergence.png", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %s", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("Body is not a PNG")
	}
}

func TestServer_Runs(t *testing.T) {
	s, runStore := newTestServer(t)
	h := s.Handler()

	cfg := smallConfig()
	rec := store.NewRunRecord("stored-run", cfg, []float64{0, 0, 0}, 0, nil, 0)
	if err := runStore.SaveRun(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	w := do(t, h, http.MethodGet, "/api/v1/runs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var infos []store.RunInfo
	json.NewDecoder(w.Body).Decode(&infos)
	if len(infos) != 1 || infos[0].ID != "stored-run" {
		t.Errorf("Unexpected listing %+v", infos)
	}

	if w := do(t, h, http.MethodGet, "/api/v1/runs/stored-run", nil); w.Code != http.StatusOK {
		t.Errorf("Get: expected 200, got %d", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/api/v1/runs/stored-run", nil); w.Code != http.StatusNoContent {
		t.Errorf("Delete: expected 204, got %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/v1/runs/stored-run", nil); w.Code != http.StatusNotFound {
		t.Errorf("Get after delete: expected 404, got %d", w.Code)
	}
}

func TestServer_RunsWithoutStore(t *testing.T) {
	s := NewServer(":0", nil, "")
	defer s.Shutdown(context.Background())

	w := do(t, s.Handler(), http.MethodGet, "/api/v1/runs", nil)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("Expected empty list, got %d %s", w.Code, w.Body.String())
	}
}

func TestServer_JobStream_SSE(t *testing.T) {
	s, _ := newTestServer(t)

	job := s.jobManager.CreateJob(smallConfig(), nil)
	go runJob(context.Background(), s.jobManager, nil, "", job.ID)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/stream", job.ID), nil)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.Handler().ServeHTTP(w, req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Stream did not end with the job")
	}

	if w.Header().Get("Content-Type") != "text/event-stream" {
		t.Error("Expected text/event-stream content type")
	}

	var last ProgressEvent
	for _, line := range strings.Split(w.Body.String(), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &last); err != nil {
			t.Fatalf("Bad event %q: %v", line, err)
		}
	}
	if last.State != StateCompleted || last.Iterations != 15 {
		t.Errorf("Last event should report completion, got %+v", last)
	}
}

func TestServer_JobStream_NotFound(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s.Handler(), http.MethodGet, "/api/v1/jobs/nonexistent/stream", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestEventBroadcaster(t *testing.T) {
	eb := NewEventBroadcaster()

	ch := eb.Subscribe("job1")
	defer eb.Unsubscribe("job1", ch)

	eb.Broadcast(ProgressEvent{JobID: "job1", State: StateRunning, Iterations: 10, BestScore: 100.5, Timestamp: time.Now()})

	select {
	case received := <-ch:
		if received.JobID != "job1" || received.Iterations != 10 {
			t.Errorf("Unexpected event %+v", received)
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for event")
	}
}

func TestEventBroadcaster_TerminalEventSurvivesFullBuffer(t *testing.T) {
	eb := NewEventBroadcaster()
	ch := eb.Subscribe("job")
	defer eb.Unsubscribe("job", ch)

	for i := 0; i < 200; i++ {
		eb.Broadcast(ProgressEvent{JobID: "job", State: StateRunning, Iterations: i})
	}
	eb.Broadcast(ProgressEvent{JobID: "job", State: StateCompleted, Iterations: 200})

	var last ProgressEvent
	for len(ch) > 0 {
		last = <-ch
	}
	if last.State != StateCompleted {
		t.Errorf("Expected the completion event last, got %+v", last)
	}
}

// trackedJobs counts jobs that still hold subscriber state.
func (eb *EventBroadcaster) trackedJobs() int {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return len(eb.clients)
}

func TestEventBroadcaster_CloseJobKeepsQueuedEvents(t *testing.T) {
	eb := NewEventBroadcaster()
	ch := eb.Subscribe("job")

	eb.Broadcast(ProgressEvent{JobID: "job", State: StateRunning, Iterations: 1})
	eb.Broadcast(ProgressEvent{JobID: "job", State: StateCompleted, Iterations: 2})
	eb.CloseJob("job")

	var got []ProgressEvent
	for ev := range ch {
		got = append(got, ev)
	}
	if len(got) != 2 || got[1].State != StateCompleted {
		t.Errorf("Expected both queued events before close, got %+v", got)
	}
	if n := eb.trackedJobs(); n != 0 {
		t.Errorf("Expected no subscriptions after CloseJob, got %d jobs", n)
	}

	// The stream handler still unsubscribes after CloseJob.
	eb.Unsubscribe("job", ch)
}

func TestEventBroadcaster_UnsubscribeDropsJob(t *testing.T) {
	eb := NewEventBroadcaster()
	a := eb.Subscribe("job")
	b := eb.Subscribe("job")

	eb.Unsubscribe("job", a)
	if len(eb.clients["job"]) != 1 {
		t.Errorf("Expected one subscriber left, got %d", len(eb.clients["job"]))
	}
	eb.Unsubscribe("job", b)
	if _, ok := eb.clients["job"]; ok {
		t.Error("Job entry should be removed with its last subscriber")
	}
}

func TestServer_JobStream_AfterCompletion(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	body, _ := json.Marshal(map[string]interface{}{"dim": 2, "popSize": 5, "iters": 3})
	w := do(t, h, http.MethodPost, "/api/v1/jobs", body)
	var job Job
	json.NewDecoder(w.Body).Decode(&job)
	waitForState(t, s, job.ID)

	// A stream opened after the job ended returns the terminal event at once.
	w = do(t, h, http.MethodGet, "/api/v1/jobs/"+job.ID+"/stream", nil)
	if !strings.Contains(w.Body.String(), `"state":"completed"`) {
		t.Errorf("Expected terminal event, got %q", w.Body.String())
	}
	if n := s.jobManager.broadcaster.trackedJobs(); n != 0 {
		t.Errorf("Stream left %d subscriptions behind", n)
	}
}

func TestServer_ShutdownWaitsForJobs(t *testing.T) {
	s, runStore := newTestServer(t)
	h := s.Handler()

	var ids []string
	for i := 0; i < 3; i++ {
		body, _ := json.Marshal(map[string]interface{}{"dim": 2, "popSize": 5, "iters": 1000000})
		w := do(t, h, http.MethodPost, "/api/v1/jobs", body)
		var job Job
		json.NewDecoder(w.Body).Decode(&job)
		ids = append(ids, job.ID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	// No polling: every worker has returned once Shutdown does.
	for _, id := range ids {
		job, _ := s.jobManager.GetJob(id)
		if job.State != StateCancelled {
			t.Errorf("Job %s: expected cancelled after shutdown, got %s", id, job.State)
		}
	}
	if running := s.jobManager.GetRunningJobs(); len(running) != 0 {
		t.Errorf("Expected no running jobs, got %d", len(running))
	}
	if infos, _ := runStore.ListRuns(context.Background()); len(infos) != 0 {
		t.Errorf("Cancelled jobs should not be stored, got %d runs", len(infos))
	}
}

func TestServer_RunTrace(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	body, _ := json.Marshal(map[string]interface{}{"dim": 2, "popSize": 5, "iters": 6})
	w := do(t, h, http.MethodPost, "/api/v1/jobs", body)
	var job Job
	json.NewDecoder(w.Body).Decode(&job)
	waitForState(t, s, job.ID)

	w = do(t, h, http.MethodGet, "/api/v1/runs/"+job.ID+"/trace", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var entries []store.TraceEntry
	if err := json.NewDecoder(w.Body).Decode(&entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 6 {
		t.Fatalf("Expected 6 trace entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Iteration != i {
			t.Errorf("Entry %d has iteration %d", i, e.Iteration)
		}
	}

	if w := do(t, h, http.MethodGet, "/api/v1/runs/ghost/trace", nil); w.Code != http.StatusNotFound {
		t.Errorf("Missing trace: expected 404, got %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/v1/runs/"+job.ID+"/bogus", nil); w.Code != http.StatusNotFound {
		t.Errorf("Unknown sub-resource: expected 404, got %d", w.Code)
	}

	noTrace := NewServer(":0", nil, "")
	defer noTrace.Shutdown(context.Background())
	if w := do(t, noTrace.Handler(), http.MethodGet, "/api/v1/runs/"+job.ID+"/trace", nil); w.Code != http.StatusNotFound {
		t.Errorf("Trace without trace dir: expected 404, got %d", w.Code)
	}
}
