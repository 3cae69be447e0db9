package api

import (
	"time"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/pkg/types"
)

// ResolveRequest is the POST /api/resolve payload. Criteria fields left empty
// fall back to the resolver defaults.
type ResolveRequest struct {
	URL       string   `json:"url"`
	Quality   string   `json:"quality,omitempty"`
	Format    string   `json:"format,omitempty"`
	Providers []string `json:"providers,omitempty"`
	Language  string   `json:"language,omitempty"`
	Async     bool     `json:"async,omitempty"`
}

// JobStatus is the lifecycle state of an asynchronous resolution job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobSummary is the public view of a resolution job.
type JobSummary struct {
	JobID       string            `json:"job_id"`
	Origin      string            `json:"origin"`
	Criteria    types.Criteria    `json:"criteria"`
	Status      JobStatus         `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Error       string            `json:"error,omitempty"`
	ErrorKind   string            `json:"error_kind,omitempty"`
	Result      *types.Resolution `json:"result,omitempty"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
