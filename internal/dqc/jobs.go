package dqc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"

	"github.com/jaskrrish/go-dqc/internal/dqc/circuit"
	"github.com/jaskrrish/go-dqc/internal/dqc/executor"
	"github.com/jaskrrish/go-dqc/internal/dqc/extractor"
	"github.com/jaskrrish/go-dqc/internal/models/dqc"
)

// Runner executes compiled OpenQASM programs
type Runner interface {
	Execute(ctx context.Context, name, qasm string, shots int) (*executor.Result, error)
}

type compiled struct {
	circ  *circuit.Circuit
	qasm  string
	stats dqc.Stats
}

type jobEntry struct {
	info   dqc.CompileJob
	result *compiled
}

// JobManager compiles problems into partitioned circuits and keeps the
// results addressable by job id
type JobManager struct {
	jobs   map[uuid.UUID]*jobEntry
	cache  *lru.Cache[string, *compiled]
	mutex  sync.RWMutex
	runner Runner
	shots  int
	logger *zap.Logger
}

// NewJobManager creates a job manager. runner may be nil when no executor is configured.
func NewJobManager(cacheSize, defaultShots int, runner Runner, logger *zap.Logger) (*JobManager, error) {
	cache, err := lru.New[string, *compiled](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "new job manager")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobManager{
		jobs:   make(map[uuid.UUID]*jobEntry),
		cache:  cache,
		runner: runner,
		shots:  defaultShots,
		logger: logger,
	}, nil
}

// requestKey identifies a problem by the SHA3-256 digest of its JSON encoding
func requestKey(p *dqc.Problem) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", errors.Wrap(err, "encode problem")
	}
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Compile runs the extractor on the request's problem. The returned job is a
// snapshot; failed compilations are stored and returned with the error.
func (jm *JobManager) Compile(ctx context.Context, req *dqc.CompileRequest) (*dqc.CompileJob, error) {
	if err := req.Validate(); err != nil {
		compilesTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	key, err := requestKey(req.Problem)
	if err != nil {
		return nil, err
	}

	jobID := uuid.New()
	entry := &jobEntry{info: dqc.CompileJob{
		JobID:      jobID,
		Name:       req.Name,
		Status:     dqc.JobCompiling,
		NumQubits:  req.Problem.NumQubits,
		Partitions: req.Problem.NumPartitions(),
		Depth:      req.Problem.Depth(),
		CreatedAt:  time.Now(),
	}}
	jm.mutex.Lock()
	jm.jobs[jobID] = entry
	storedJobs.Set(float64(len(jm.jobs)))
	jm.mutex.Unlock()

	logger := jm.logger.With(zap.String("job_id", jobID.String()))

	if result, ok := jm.cache.Get(key); ok {
		cacheHits.Inc()
		logger.Info("compile served from cache", zap.String("fingerprint", result.circ.Fingerprint()))
		return jm.complete(jobID, result, true), nil
	}

	start := time.Now()
	name := req.Name
	if name == "" {
		name = extractor.DefaultCircuitName
	}
	ex, err := extractor.New(req.Problem, extractor.WithLogger(logger), extractor.WithName(name))
	if err != nil {
		return jm.fail(jobID, err), err
	}
	circ, err := ex.RunContext(ctx)
	compileDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Error("compile failed", zap.Error(err))
		return jm.fail(jobID, err), err
	}

	result := &compiled{circ: circ, qasm: circ.QASM(), stats: ex.Stats()}
	jm.cache.Add(key, result)

	remoteOperations.WithLabelValues("state_teleport").Add(float64(result.stats.StateTeleports))
	remoteOperations.WithLabelValues("gate_teleport").Add(float64(result.stats.GateTeleports))
	remoteOperations.WithLabelValues("entangle_root").Add(float64(result.stats.LinksOpened))
	remoteOperations.WithLabelValues("end_entanglement_link").Add(float64(result.stats.LinksClosed))
	parkedQubits.Add(float64(result.stats.Parked))

	logger.Info("compile completed",
		zap.Int("instructions", result.stats.Instructions),
		zap.Duration("elapsed", time.Since(start)),
	)
	return jm.complete(jobID, result, false), nil
}

func (jm *JobManager) complete(jobID uuid.UUID, result *compiled, cached bool) *dqc.CompileJob {
	compilesTotal.WithLabelValues(string(dqc.JobCompleted)).Inc()

	jm.mutex.Lock()
	defer jm.mutex.Unlock()

	entry, exists := jm.jobs[jobID]
	if !exists {
		return nil
	}
	now := time.Now()
	stats := result.stats
	entry.result = result
	entry.info.Status = dqc.JobCompleted
	entry.info.Cached = cached
	entry.info.Fingerprint = result.circ.Fingerprint()
	entry.info.Stats = &stats
	entry.info.CompletedAt = &now

	info := entry.info
	return &info
}

func (jm *JobManager) fail(jobID uuid.UUID, cause error) *dqc.CompileJob {
	compilesTotal.WithLabelValues(string(dqc.JobFailed)).Inc()

	jm.mutex.Lock()
	defer jm.mutex.Unlock()

	entry, exists := jm.jobs[jobID]
	if !exists {
		return nil
	}
	now := time.Now()
	entry.info.Status = dqc.JobFailed
	entry.info.Message = cause.Error()
	entry.info.CompletedAt = &now

	info := entry.info
	return &info
}

// GetJob retrieves a job by ID
func (jm *JobManager) GetJob(jobID uuid.UUID) (*dqc.CompileJob, error) {
	jm.mutex.RLock()
	defer jm.mutex.RUnlock()

	entry, exists := jm.jobs[jobID]
	if !exists {
		return nil, dqc.ErrJobNotFound
	}
	info := entry.info
	return &info, nil
}

// GetQASM returns the OpenQASM text of a completed job
func (jm *JobManager) GetQASM(jobID uuid.UUID) (string, error) {
	jm.mutex.RLock()
	defer jm.mutex.RUnlock()

	entry, exists := jm.jobs[jobID]
	if !exists {
		return "", dqc.ErrJobNotFound
	}
	if entry.result == nil {
		return "", dqc.ErrJobNotCompleted
	}
	return entry.result.qasm, nil
}

// DeleteJob forgets a job. Cached results stay available to identical requests.
func (jm *JobManager) DeleteJob(jobID uuid.UUID) error {
	jm.mutex.Lock()
	defer jm.mutex.Unlock()

	if _, exists := jm.jobs[jobID]; !exists {
		return dqc.ErrJobNotFound
	}
	delete(jm.jobs, jobID)
	storedJobs.Set(float64(len(jm.jobs)))
	return nil
}

// Execute hands a completed job's circuit to the executor
func (jm *JobManager) Execute(ctx context.Context, jobID uuid.UUID, shots int) (*dqc.ExecuteResponse, error) {
	if jm.runner == nil {
		return nil, dqc.ErrExecutorNotConfigured
	}

	jm.mutex.RLock()
	entry, exists := jm.jobs[jobID]
	var result *compiled
	var name string
	if exists {
		result = entry.result
		name = entry.info.Name
	}
	jm.mutex.RUnlock()

	if !exists {
		return nil, dqc.ErrJobNotFound
	}
	if result == nil {
		return nil, dqc.ErrJobNotCompleted
	}
	if shots <= 0 {
		shots = jm.shots
	}

	jm.logger.Info("executing compiled circuit",
		zap.String("job_id", jobID.String()),
		zap.Int("shots", shots),
	)
	res, err := jm.runner.Execute(ctx, name, result.qasm, shots)
	if err != nil {
		executions.WithLabelValues(string(dqc.JobFailed)).Inc()
		return nil, errors.Wrap(err, "execute")
	}
	executions.WithLabelValues(string(dqc.JobCompleted)).Inc()

	return &dqc.ExecuteResponse{
		JobID:       jobID.String(),
		ExecutionID: res.JobID,
		Status:      res.StatusMsg,
		Counts:      res.Counts,
	}, nil
}

// CleanupJobs removes jobs created before maxAge ago
func (jm *JobManager) CleanupJobs(maxAge time.Duration) int {
	jm.mutex.Lock()
	defer jm.mutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, entry := range jm.jobs {
		if entry.info.CreatedAt.Before(cutoff) {
			delete(jm.jobs, id)
			removed++
		}
	}
	storedJobs.Set(float64(len(jm.jobs)))
	return removed
}
