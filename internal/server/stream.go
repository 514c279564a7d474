package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ProgressEvent is one SSE message: the job's state after an iteration.
type ProgressEvent struct {
	JobID      string    `json:"jobId"`
	State      JobState  `json:"state"`
	Iterations int       `json:"iterations"`
	BestScore  float64   `json:"bestScore"`
	Stopped    string    `json:"stopped,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

const subscriberBuffer = 64

// EventBroadcaster fans job progress out to stream subscribers. It keeps no
// per-job state once a job's subscribers are gone.
type EventBroadcaster struct {
	mu      sync.Mutex
	clients map[string]map[chan ProgressEvent]struct{}
}

func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		clients: make(map[string]map[chan ProgressEvent]struct{}),
	}
}

// Subscribe registers a channel for the job's future events.
func (eb *EventBroadcaster) Subscribe(jobID string) chan ProgressEvent {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan ProgressEvent, subscriberBuffer)
	if eb.clients[jobID] == nil {
		eb.clients[jobID] = make(map[chan ProgressEvent]struct{})
	}
	eb.clients[jobID][ch] = struct{}{}

	slog.Debug("SSE client subscribed", "job_id", jobID, "total_clients", len(eb.clients[jobID]))
	return ch
}

// Unsubscribe removes and closes ch. It is a no-op after CloseJob.
func (eb *EventBroadcaster) Unsubscribe(jobID string, ch chan ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	clients, ok := eb.clients[jobID]
	if !ok {
		return
	}
	if _, ok := clients[ch]; ok {
		delete(clients, ch)
		close(ch)
	}
	if len(clients) == 0 {
		delete(eb.clients, jobID)
	}
}

// Broadcast queues event for every subscriber of its job. Progress events
// are skipped for a full subscriber; a terminal event evicts the oldest
// queued one instead so every stream sees the end.
func (eb *EventBroadcaster) Broadcast(event ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for ch := range eb.clients[event.JobID] {
		select {
		case ch <- event:
			continue
		default:
		}
		if !event.State.Terminal() {
			slog.Debug("SSE channel full, skipping event", "job_id", event.JobID, "iterations", event.Iterations)
			continue
		}
		select {
		case <-ch:
		default:
		}
		ch <- event
	}
}

// CloseJob closes every subscription of a finished job. Events already
// queued stay readable.
func (eb *EventBroadcaster) CloseJob(jobID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for ch := range eb.clients[jobID] {
		close(ch)
	}
	delete(eb.clients, jobID)
}

// handleJobStream streams progress until the job ends or the client leaves.
// The subscription is taken before the snapshot: a job that finishes in
// between shows up terminal in the snapshot, otherwise its terminal event
// reaches the channel.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request, jobID string) {
	if _, exists := s.jobManager.GetJob(jobID); !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	events := s.jobManager.broadcaster.Subscribe(jobID)
	defer s.jobManager.broadcaster.Unsubscribe(jobID, events)

	job, _ := s.jobManager.GetJob(jobID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	initial := eventFor(job)
	if err := writeSSEEvent(w, initial); err != nil {
		slog.Error("Failed to write SSE event", "job_id", jobID, "error", err)
		return
	}
	flusher.Flush()
	if initial.State.Terminal() {
		return
	}

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Debug("SSE client disconnected", "job_id", jobID)
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, event); err != nil {
				slog.Error("Failed to write SSE event", "job_id", jobID, "error", err)
				return
			}
			flusher.Flush()
			if event.State.Terminal() {
				return
			}

		case <-ping.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func eventFor(job *Job) ProgressEvent {
	return ProgressEvent{
		JobID:      job.ID,
		State:      job.State,
		Iterations: job.Iterations,
		BestScore:  job.BestScore,
		Stopped:    job.Stopped,
		Timestamp:  time.Now(),
	}
}

func writeSSEEvent(w http.ResponseWriter, event ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
