package pipeline

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dgallion1/insurtree/internal/store"
)

// JobStatus represents the state of an import job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusValidating JobStatus = "validating"
	StatusStoring    JobStatus = "storing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions happen from s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job tracks the state of a single file import.
type Job struct {
	mu sync.Mutex

	ID       string     `json:"job_id"`
	Status   JobStatus  `json:"status"`
	Phase    string     `json:"phase"`
	Filename string     `json:"filename"`
	Mode     store.Mode `json:"mode"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
	done     chan struct{}
}

// Progress tracks processing progress.
type Progress struct {
	RecordsParsed int      `json:"records_parsed"`
	RecordsStored int      `json:"records_stored"`
	StoreAttempts int      `json:"store_attempts"`
	Errors        []string `json:"errors"`
}

// NewJob creates a queued job for an uploaded file.
func NewJob(filename string, mode store.Mode, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:          ulid.Make().String(),
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    filename,
		Mode:        mode,
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		UpdatedAt:   now,
		fileData:    data,
		done:        make(chan struct{}),
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs idle for longer than the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Terminal() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically. Entering a terminal status
// releases Wait and drops the file bytes.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Terminal() {
		return
	}
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
	if status.Terminal() {
		j.fileData = nil
		if j.done != nil {
			close(j.done)
		}
	}
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetParsed records how many records the file yielded.
func (j *Job) SetParsed(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.RecordsParsed = n
	j.UpdatedAt = time.Now()
}

// SetStored records how many records were written.
func (j *Job) SetStored(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.RecordsStored = n
	j.UpdatedAt = time.Now()
}

// IncrStoreAttempts atomically increments the store attempt count.
func (j *Job) IncrStoreAttempts() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.StoreAttempts++
	j.UpdatedAt = time.Now()
}

// FileData returns the raw file bytes, or nil once the job has finished.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// Wait blocks until the job reaches a terminal status or ctx is done.
func (j *Job) Wait(ctx context.Context) (JobStatus, error) {
	select {
	case <-j.done:
		return j.Snapshot().Status, nil
	case <-ctx.Done():
		return j.Snapshot().Status, ctx.Err()
	}
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string     `json:"job_id"`
	Status      JobStatus  `json:"status"`
	Phase       string     `json:"phase"`
	Filename    string     `json:"filename"`
	Mode        store.Mode `json:"mode"`
	Progress    Progress   `json:"progress"`
	ContentHash string     `json:"content_hash,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.Progress.Errors))
	copy(errs, j.Progress.Errors)
	return JobSnapshot{
		ID:       j.ID,
		Status:   j.Status,
		Phase:    j.Phase,
		Filename: j.Filename,
		Mode:     j.Mode,
		Progress: Progress{
			RecordsParsed: j.Progress.RecordsParsed,
			RecordsStored: j.Progress.RecordsStored,
			StoreAttempts: j.Progress.StoreAttempts,
			Errors:        errs,
		},
		ContentHash: j.ContentHash,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
