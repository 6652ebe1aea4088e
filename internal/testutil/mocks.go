// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"io"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"

	"statement-worker/internal/domain"
)

// === Ledger Mock ===

// MockLedger implements domain.Ledger for testing. Jobs are kept in memory;
// every UpdateJob call is recorded for assertions.
type MockLedger struct {
	mu      sync.Mutex
	Jobs    map[string]*domain.Job
	Updates []RecordedUpdate

	GetJobFn    func(ctx context.Context, handle string) (*domain.Job, error)
	UpdateJobFn func(ctx context.Context, handle string, update domain.JobUpdate) error
}

// RecordedUpdate is one UpdateJob call captured by the mock.
type RecordedUpdate struct {
	Handle string
	Update domain.JobUpdate
}

// NewMockLedger returns an empty in-memory ledger.
func NewMockLedger() *MockLedger {
	return &MockLedger{Jobs: make(map[string]*domain.Job)}
}

// Put stores a job directly, bypassing CreateJob.
func (m *MockLedger) Put(job *domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Jobs[job.Handle] = job
}

// GetJob implements the interface method for testing.
func (m *MockLedger) GetJob(ctx context.Context, handle string) (*domain.Job, error) {
	if m.GetJobFn != nil {
		return m.GetJobFn(ctx, handle)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.Jobs[handle]
	if !ok {
		return nil, domain.ErrNotFound("no job found for handle %q", handle)
	}
	copied := *job
	return &copied, nil
}

// UpdateJob implements the interface method for testing. Merge semantics
// mirror the real repository: only non-nil fields change.
func (m *MockLedger) UpdateJob(ctx context.Context, handle string, update domain.JobUpdate) error {
	if m.UpdateJobFn != nil {
		if err := m.UpdateJobFn(ctx, handle, update); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates = append(m.Updates, RecordedUpdate{Handle: handle, Update: update})
	job, ok := m.Jobs[handle]
	if !ok {
		return domain.ErrNotFound("no job found for handle %q", handle)
	}
	if update.Status != nil {
		job.Status = *update.Status
	}
	if update.Error != nil {
		job.Error = update.Error
	}
	if update.TotalRows != nil {
		job.TotalRows = *update.TotalRows
	}
	if update.Columns != nil {
		job.Columns = update.Columns
	}
	if update.TotalSizeEstimate != nil {
		job.TotalSizeEstimate = *update.TotalSizeEstimate
	}
	if update.ResultManifestPath != nil {
		job.ResultManifestPath = *update.ResultManifestPath
	}
	if update.Telemetry != nil {
		job.Telemetry = update.Telemetry
	}
	if update.StartedAt != nil {
		job.StartedAt = update.StartedAt
	}
	if update.FinishedAt != nil {
		job.FinishedAt = update.FinishedAt
	}
	return nil
}

// CreateJob implements the interface method for testing.
func (m *MockLedger) CreateJob(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.Handle == "" {
		job.Handle = domain.NewHandle()
	}
	if job.Status == "" {
		job.Status = domain.JobStatusQueued
	}
	m.Jobs[job.Handle] = job
	return job, nil
}

// ListJobs implements the interface method for testing.
func (m *MockLedger) ListJobs(ctx context.Context, limit int) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Job, 0, len(m.Jobs))
	for _, job := range m.Jobs {
		out = append(out, *job)
	}
	return out, nil
}

// UpdatesFor returns the recorded updates for one handle.
func (m *MockLedger) UpdatesFor(handle string) []RecordedUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RecordedUpdate
	for _, u := range m.Updates {
		if u.Handle == handle {
			out = append(out, u)
		}
	}
	return out
}

var _ domain.Ledger = (*MockLedger)(nil)

// === Query Engine Mock ===

// MockResultStream implements domain.ResultStream over a fixed record slice.
// A non-nil Err is returned after the listed records are consumed, otherwise
// the stream ends with io.EOF.
type MockResultStream struct {
	Records   []arrow.Record
	RecSchema *arrow.Schema
	Err       error
	Stats     map[string]any

	pos    int
	closed bool
}

// Next implements the interface method for testing.
func (m *MockResultStream) Next(ctx context.Context) (arrow.Record, error) {
	if m.pos < len(m.Records) {
		rec := m.Records[m.pos]
		m.pos++
		return rec, nil
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return nil, io.EOF
}

// Schema implements the interface method for testing.
func (m *MockResultStream) Schema() *arrow.Schema { return m.RecSchema }

// Telemetry implements the interface method for testing.
func (m *MockResultStream) Telemetry() map[string]any { return m.Stats }

// Close implements the interface method for testing.
func (m *MockResultStream) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockResultStream) Closed() bool { return m.closed }

// MockQueryEngine implements domain.QueryEngine for testing.
type MockQueryEngine struct {
	ExecuteFn func(ctx context.Context, sqlText string) (domain.ResultStream, error)
	Executed  []string // sql texts passed to Execute
}

// Execute implements the interface method for testing.
func (m *MockQueryEngine) Execute(ctx context.Context, sqlText string) (domain.ResultStream, error) {
	m.Executed = append(m.Executed, sqlText)
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, sqlText)
	}
	panic("unexpected call to MockQueryEngine.Execute")
}

var _ domain.QueryEngine = (*MockQueryEngine)(nil)

// === Object Store Mock ===

// MockObjectStore implements domain.ObjectStore with an in-memory map.
type MockObjectStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Order   []string // paths in write order

	WriteBytesFn func(ctx context.Context, path string, data []byte) error
}

// NewMockObjectStore returns an empty in-memory object store.
func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{Objects: make(map[string][]byte)}
}

// WriteBytes implements the interface method for testing.
func (m *MockObjectStore) WriteBytes(ctx context.Context, path string, data []byte) error {
	if m.WriteBytesFn != nil {
		if err := m.WriteBytesFn(ctx, path, data); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.Objects[path] = buf
	m.Order = append(m.Order, path)
	return nil
}

// Get returns the stored bytes for path.
func (m *MockObjectStore) Get(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Objects[path]
	return data, ok
}

var _ domain.ObjectStore = (*MockObjectStore)(nil)
