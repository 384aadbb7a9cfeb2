package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Config holds the executor endpoint configuration
type Config struct {
	// Base URL of the executor service
	BaseURL string

	// Bearer token, optional
	APIKey string

	// Interval between status polls
	PollInterval time.Duration

	// Upper bound on waiting for a submitted job
	MaxWait time.Duration

	// HTTP client with timeout
	HTTPClient *http.Client
}

// Client submits compiled circuits to an external executor over REST
type Client struct {
	config *Config
	logger *zap.Logger
}

// Job represents a submitted circuit
type Job struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created"`
}

// Result represents job execution results
type Result struct {
	Counts        map[string]int `json:"counts"`
	Success       bool           `json:"success"`
	StatusMsg     string         `json:"status"`
	JobID         string         `json:"job_id"`
	ExecutionTime float64        `json:"execution_time"`
}

// Circuit is the submission payload
type Circuit struct {
	Name  string `json:"name,omitempty"`
	QASM  string `json:"qasm"`
	Shots int    `json:"shots"`
}

// Executor API endpoints
const (
	JobsEndpoint = "/api/v1/jobs"
)

// Job status constants
const (
	JobStatusQueued    = "QUEUED"
	JobStatusRunning   = "RUNNING"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
	JobStatusCancelled = "CANCELLED"
)

// NewClient creates a new executor client
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if config == nil || config.BaseURL == "" {
		return nil, errors.New("executor base URL is required")
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}
	if config.MaxWait <= 0 {
		config.MaxWait = 5 * time.Minute
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{
			Timeout: 60 * time.Second,
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{config: config, logger: logger}, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return errors.Errorf("%s %s failed: %s (status: %d)",
			method, path, strings.TrimSpace(string(msg)), resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// SubmitJob submits a circuit for execution
func (c *Client) SubmitJob(ctx context.Context, circuit *Circuit) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodPost, JobsEndpoint, circuit, &job); err != nil {
		return nil, errors.Wrap(err, "job submission failed")
	}
	c.logger.Info("submitted circuit", zap.String("job_id", job.ID), zap.Int("shots", circuit.Shots))
	return &job, nil
}

// GetJobStatus retrieves the status of a job
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%s", JobsEndpoint, jobID), nil, &job); err != nil {
		return nil, errors.Wrap(err, "get job status failed")
	}
	return &job, nil
}

// WaitForJob polls a job until it reaches a final status
func (c *Client) WaitForJob(ctx context.Context, jobID string) (*Job, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.MaxWait)
	defer cancel()

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "job %s did not finish", jobID)

		case <-ticker.C:
			job, err := c.GetJobStatus(ctx, jobID)
			if err != nil {
				return nil, err
			}

			switch job.Status {
			case JobStatusCompleted:
				return job, nil
			case JobStatusFailed:
				return job, errors.Errorf("job %s failed", jobID)
			case JobStatusCancelled:
				return job, errors.Errorf("job %s was cancelled", jobID)
			}
			c.logger.Debug("waiting for job", zap.String("job_id", jobID), zap.String("status", job.Status))
		}
	}
}

// GetJobResult retrieves the results of a completed job
func (c *Client) GetJobResult(ctx context.Context, jobID string) (*Result, error) {
	var result Result
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%s/results", JobsEndpoint, jobID), nil, &result); err != nil {
		return nil, errors.Wrap(err, "get job result failed")
	}
	return &result, nil
}

// CancelJob cancels a running or queued job
func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s/%s/cancel", JobsEndpoint, jobID), nil, nil); err != nil {
		return errors.Wrap(err, "cancel job failed")
	}
	return nil
}

// Execute submits qasm, waits for completion and returns the counts
func (c *Client) Execute(ctx context.Context, name, qasm string, shots int) (*Result, error) {
	job, err := c.SubmitJob(ctx, &Circuit{Name: name, QASM: qasm, Shots: shots})
	if err != nil {
		return nil, err
	}

	completed, err := c.WaitForJob(ctx, job.ID)
	if err != nil {
		return nil, errors.Wrap(err, "job execution failed")
	}

	result, err := c.GetJobResult(ctx, completed.ID)
	if err != nil {
		return nil, err
	}
	if result.JobID == "" {
		result.JobID = completed.ID
	}
	return result, nil
}
