package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const traceFile = "trace.jsonl"

// TraceEntry is one line of a convergence trace.
type TraceEntry struct {
	// Iteration is zero-based.
	Iteration int `json:"iteration"`

	// BestScore is Alpha's score after the iteration.
	BestScore float64 `json:"bestScore"`

	Timestamp time.Time `json:"timestamp"`
}

// TraceWriter appends entries to <baseDir>/runs/<runID>/trace.jsonl while a
// run is in progress. Writes are buffered; methods may be called from
// several goroutines.
type TraceWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	path string
}

// NewTraceWriter starts a fresh trace for runID, replacing any earlier one.
func NewTraceWriter(baseDir, runID string) (*TraceWriter, error) {
	dir := runDir(baseDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}

	path := filepath.Join(dir, traceFile)
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace: %w", err)
	}
	return &TraceWriter{file: file, buf: bufio.NewWriterSize(file, 64*1024), path: path}, nil
}

func (tw *TraceWriter) Write(entry TraceEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode trace entry %d: %w", entry.Iteration, err)
	}
	line = append(line, '\n')

	tw.mu.Lock()
	defer tw.mu.Unlock()
	if _, err := tw.buf.Write(line); err != nil {
		return fmt.Errorf("write trace entry %d: %w", entry.Iteration, err)
	}
	return nil
}

// Flush pushes buffered entries to disk and syncs the file.
func (tw *TraceWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.buf.Flush(); err != nil {
		return fmt.Errorf("flush trace: %w", err)
	}
	return tw.file.Sync()
}

func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	return errors.Join(tw.buf.Flush(), tw.file.Close())
}

func (tw *TraceWriter) Path() string {
	return tw.path
}

// TraceReader decodes a stored trace line by line.
type TraceReader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewTraceReader opens the trace of runID. A missing trace is a
// NotFoundError.
func NewTraceReader(baseDir, runID string) (*TraceReader, error) {
	file, err := os.Open(filepath.Join(runDir(baseDir, runID), traceFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, &NotFoundError{RunID: runID}
	}
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	return &TraceReader{file: file, scanner: bufio.NewScanner(file)}, nil
}

// Read returns the next entry, or io.EOF after the last one.
func (tr *TraceReader) Read() (*TraceEntry, error) {
	if !tr.scanner.Scan() {
		if err := tr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		return nil, io.EOF
	}

	var entry TraceEntry
	if err := json.Unmarshal(tr.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("decode trace line: %w", err)
	}
	return &entry, nil
}

func (tr *TraceReader) ReadAll() ([]TraceEntry, error) {
	var entries []TraceEntry
	for {
		entry, err := tr.Read()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, *entry)
	}
}

func (tr *TraceReader) Close() error {
	return tr.file.Close()
}

// ReadTrace loads the whole trace of runID.
func ReadTrace(baseDir, runID string) ([]TraceEntry, error) {
	r, err := NewTraceReader(baseDir, runID)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadAll()
}
