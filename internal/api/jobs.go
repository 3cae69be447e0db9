package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/resolver"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/pkg/types"
)

// ErrMaxJobs signals that the concurrent job limit has been reached.
var ErrMaxJobs = errors.New("maximum concurrent resolution jobs reached")

// ResolveFunc runs one resolution. The production value is Resolver.Resolve.
type ResolveFunc func(ctx context.Context, origin string, criteria types.Criteria) (*types.Resolution, error)

// JobManager tracks asynchronous resolution jobs over a bounded worker pool.
type JobManager struct {
	resolve ResolveFunc
	pool    *resolver.WorkerPool
	maxJobs int
	log     *slog.Logger

	mu      sync.RWMutex
	jobs    map[string]*Job
	running int
}

// NewJobManager constructs a manager running at most maxJobs resolutions at
// once.
func NewJobManager(rootCtx context.Context, resolve ResolveFunc, maxJobs int, logger *slog.Logger) (*JobManager, error) {
	if resolve == nil {
		return nil, errors.New("resolve function is required")
	}
	if maxJobs <= 0 {
		maxJobs = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := resolver.NewWorkerPool(rootCtx, maxJobs, maxJobs*4)
	if err != nil {
		return nil, err
	}
	return &JobManager{
		resolve: resolve,
		pool:    pool,
		maxJobs: maxJobs,
		log:     logger.With("component", "api"),
		jobs:    make(map[string]*Job),
	}, nil
}

// ResolveSync runs a resolution inline on the caller's context.
func (m *JobManager) ResolveSync(ctx context.Context, origin string, criteria types.Criteria) (*types.Resolution, error) {
	return m.resolve(ctx, origin, criteria)
}

// Start enqueues an asynchronous resolution job.
func (m *JobManager) Start(ctx context.Context, origin string, criteria types.Criteria) (*Job, error) {
	if strings.TrimSpace(origin) == "" {
		return nil, fmt.Errorf("url is required")
	}

	job := newJob(generateJobID(), origin, criteria)

	m.mu.Lock()
	if m.running >= m.maxJobs {
		m.mu.Unlock()
		return nil, ErrMaxJobs
	}
	m.running++
	m.jobs[job.id] = job
	m.mu.Unlock()

	err := m.pool.Submit(ctx, func(runCtx context.Context) {
		job.markRunning()
		res, err := m.resolve(runCtx, origin, criteria)
		job.complete(res, err)
		m.mu.Lock()
		if m.running > 0 {
			m.running--
		}
		m.mu.Unlock()
	})
	if err != nil {
		m.mu.Lock()
		if m.running > 0 {
			m.running--
		}
		delete(m.jobs, job.id)
		m.mu.Unlock()
		return nil, err
	}
	return job, nil
}

// Get returns a job by id.
func (m *JobManager) Get(id string) (*Job, bool) {
	id = strings.TrimSpace(id)
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	return job, ok
}

// List returns summaries of all known jobs, newest first.
func (m *JobManager) List() []JobSummary {
	m.mu.RLock()
	summaries := make([]JobSummary, 0, len(m.jobs))
	for _, job := range m.jobs {
		summaries = append(summaries, job.Snapshot())
	}
	m.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries
}

// Shutdown stops the worker pool.
func (m *JobManager) Shutdown() {
	m.pool.Close()
}

// Job is one asynchronous resolution.
type Job struct {
	id       string
	origin   string
	criteria types.Criteria

	mu          sync.Mutex
	status      JobStatus
	createdAt   time.Time
	startedAt   *time.Time
	completedAt *time.Time
	result      *types.Resolution
	err         error
}

func newJob(id, origin string, criteria types.Criteria) *Job {
	return &Job{
		id:        id,
		origin:    origin,
		criteria:  criteria,
		status:    JobStatusPending,
		createdAt: time.Now(),
	}
}

func (j *Job) markRunning() {
	now := time.Now()
	j.mu.Lock()
	j.status = JobStatusRunning
	j.startedAt = &now
	j.mu.Unlock()
}

func (j *Job) complete(res *types.Resolution, err error) {
	now := time.Now()
	j.mu.Lock()
	j.completedAt = &now
	if err != nil {
		j.status = JobStatusFailed
		j.err = err
	} else {
		j.status = JobStatusCompleted
		j.result = res
	}
	j.mu.Unlock()
}

// Snapshot returns a copy of the public job state.
func (j *Job) Snapshot() JobSummary {
	j.mu.Lock()
	defer j.mu.Unlock()

	summary := JobSummary{
		JobID:     j.id,
		Origin:    j.origin,
		Criteria:  j.criteria,
		Status:    j.status,
		CreatedAt: j.createdAt,
		Result:    j.result,
	}
	if j.startedAt != nil {
		started := *j.startedAt
		summary.StartedAt = &started
	}
	if j.completedAt != nil {
		completed := *j.completedAt
		summary.CompletedAt = &completed
	}
	if j.err != nil {
		summary.Error = j.err.Error()
		summary.ErrorKind = types.FailKindOf(j.err).String()
	}
	return summary
}

func generateJobID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("job-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
