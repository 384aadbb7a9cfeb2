package dqc

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current state of a compile job
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobCompiling JobStatus = "compiling"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Stats summarizes the remote operations of a compiled circuit
type Stats struct {
	Instructions   int `json:"instructions"`
	EPRPairs       int `json:"epr_pairs"`
	StateTeleports int `json:"state_teleports"`
	GateTeleports  int `json:"gate_teleports"`
	LinksOpened    int `json:"links_opened"`
	LocalLinks     int `json:"local_links"`
	LinksClosed    int `json:"links_closed"`
	Parked         int `json:"parked"`
	Swaps          int `json:"swaps"`
	Measurements   int `json:"measurements"`
}

// CompileJob is one compilation of a Problem into a physical circuit
type CompileJob struct {
	JobID       uuid.UUID  `json:"job_id"`
	Name        string     `json:"name,omitempty"`
	Status      JobStatus  `json:"status"`
	NumQubits   int        `json:"num_qubits"`
	Partitions  int        `json:"partitions"`
	Depth       int        `json:"depth"`
	Fingerprint string     `json:"fingerprint,omitempty"`
	Cached      bool       `json:"cached"`
	Stats       *Stats     `json:"stats,omitempty"`
	Message     string     `json:"message,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CompileRequest is the body of POST /api/v1/dqc/compile
type CompileRequest struct {
	Name    string   `json:"name,omitempty"`
	Problem *Problem `json:"problem"`
}

// Validate validates a compile request
func (r *CompileRequest) Validate() error {
	if r.Problem == nil {
		return InvalidInput("compile", "problem is required")
	}
	return r.Problem.Validate()
}

// CompileResponse is returned when creating or querying a job
type CompileResponse struct {
	Job   *CompileJob `json:"job"`
	Error string      `json:"error,omitempty"`
}

// ExecuteRequest asks for a compiled circuit to be handed to the executor
type ExecuteRequest struct {
	Shots int `json:"shots,omitempty"`
}

// ExecuteResponse reports the executor's answer
type ExecuteResponse struct {
	JobID       string         `json:"job_id"`
	ExecutionID string         `json:"execution_id,omitempty"`
	Status      string         `json:"status,omitempty"`
	Counts      map[string]int `json:"counts,omitempty"`
	Error       string         `json:"error,omitempty"`
}
