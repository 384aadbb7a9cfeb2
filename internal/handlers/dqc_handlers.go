package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	dqccore "github.com/jaskrrish/go-dqc/internal/dqc"
	"github.com/jaskrrish/go-dqc/internal/models/dqc"
)

// maxBodyBytes bounds compile request bodies
const maxBodyBytes = 8 << 20

// DQCHandler manages compile-job HTTP requests
type DQCHandler struct {
	jobs   *dqccore.JobManager
	logger *zap.Logger
}

// NewDQCHandler creates a handler over a job manager
func NewDQCHandler(jobs *dqccore.JobManager, logger *zap.Logger) *DQCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DQCHandler{jobs: jobs, logger: logger}
}

// CompileHandler handles POST /api/v1/dqc/compile
func (h *DQCHandler) CompileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req dqc.CompileRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	job, err := h.jobs.Compile(r.Context(), &req)
	if err != nil {
		status := statusFor(err)
		if job == nil {
			respondWithError(w, status, err.Error())
			return
		}
		respondWithJSON(w, status, dqc.CompileResponse{Job: job, Error: err.Error()})
		return
	}

	respondWithJSON(w, http.StatusCreated, dqc.CompileResponse{Job: job})
}

// JobsHandler routes /api/v1/dqc/jobs/{id}[/qasm|/execute]
func (h *DQCHandler) JobsHandler(w http.ResponseWriter, r *http.Request) {
	// /api/v1/dqc/jobs/{id}/...
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 5 || len(pathParts) > 6 {
		respondWithError(w, http.StatusBadRequest, "Invalid URL format")
		return
	}

	jobID, err := uuid.Parse(pathParts[4])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	action := ""
	if len(pathParts) == 6 {
		action = pathParts[5]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.getJob(w, jobID)
	case action == "" && r.Method == http.MethodDelete:
		h.deleteJob(w, jobID)
	case action == "qasm" && r.Method == http.MethodGet:
		h.getQASM(w, jobID)
	case action == "execute" && r.Method == http.MethodPost:
		h.execute(w, r, jobID)
	case action == "" || action == "qasm" || action == "execute":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

func (h *DQCHandler) getJob(w http.ResponseWriter, jobID uuid.UUID) {
	job, err := h.jobs.GetJob(jobID)
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, dqc.CompileResponse{Job: job})
}

func (h *DQCHandler) deleteJob(w http.ResponseWriter, jobID uuid.UUID) {
	if err := h.jobs.DeleteJob(jobID); err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Job deleted",
	})
}

func (h *DQCHandler) getQASM(w http.ResponseWriter, jobID uuid.UUID) {
	qasm, err := h.jobs.GetQASM(jobID)
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(qasm))
}

func (h *DQCHandler) execute(w http.ResponseWriter, r *http.Request, jobID uuid.UUID) {
	var req dqc.ExecuteRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	resp, err := h.jobs.Execute(r.Context(), jobID, req.Shots)
	if err != nil {
		h.logger.Warn("execution failed", zap.String("job_id", jobID.String()), zap.Error(err))
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, dqc.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, dqc.ErrJobNotCompleted):
		return http.StatusConflict
	case errors.Is(err, dqc.ErrExecutorNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, dqc.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, dqc.ErrResourceExhausted):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
