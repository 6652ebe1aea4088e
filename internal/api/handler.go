// Package api exposes the statement job HTTP surface: submit, run, and
// inspect jobs backed by the ledger and the execution pipeline.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/semaphore"

	"statement-worker/internal/domain"
	"statement-worker/internal/middleware"
)

// StatementExecutor runs one job end to end. Implemented by runner.Executor.
type StatementExecutor interface {
	Execute(ctx context.Context, handle string) error
}

// Handler serves the statement job endpoints.
type Handler struct {
	ledger   domain.Ledger
	executor StatementExecutor
	sem      *semaphore.Weighted
	logger   *slog.Logger
}

// NewHandler wires the HTTP handler. maxConcurrent caps the number of jobs
// executing in the background at once.
func NewHandler(ledger domain.Ledger, executor StatementExecutor, maxConcurrent int64, logger *slog.Logger) *Handler {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		ledger:   ledger,
		executor: executor,
		sem:      semaphore.NewWeighted(maxConcurrent),
		logger:   logger.With("component", "api"),
	}
}

// Routes mounts the statement endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/statements", h.SubmitStatement)
	r.Get("/statements", h.ListStatements)
	r.Get("/statements/{handle}", h.GetStatement)
	r.Post("/statements/{handle}/run", h.RunStatement)
}

type submitRequest struct {
	SQL string `json:"sql"`
}

type jobResponse struct {
	Handle             string            `json:"handle"`
	Status             domain.JobStatus  `json:"status"`
	SQLText            string            `json:"sqlText,omitempty"`
	SubmittedBy        string            `json:"submittedBy,omitempty"`
	Error              *string           `json:"error,omitempty"`
	TotalRows          int64             `json:"totalRows"`
	Columns            []domain.Column   `json:"columns,omitempty"`
	TotalSizeEstimate  int64             `json:"totalSizeEstimate"`
	ResultManifestPath string            `json:"resultManifestPath,omitempty"`
	Telemetry          map[string]any    `json:"telemetry,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	StartedAt          *time.Time        `json:"startedAt,omitempty"`
	FinishedAt         *time.Time        `json:"finishedAt,omitempty"`
}

func toJobResponse(job *domain.Job) jobResponse {
	return jobResponse{
		Handle:             job.Handle,
		Status:             job.Status,
		SQLText:            job.SQLText,
		SubmittedBy:        job.SubmittedBy,
		Error:              job.Error,
		TotalRows:          job.TotalRows,
		Columns:            job.Columns,
		TotalSizeEstimate:  job.TotalSizeEstimate,
		ResultManifestPath: job.ResultManifestPath,
		Telemetry:          job.Telemetry,
		CreatedAt:          job.CreatedAt,
		StartedAt:          job.StartedAt,
		FinishedAt:         job.FinishedAt,
	}
}

// SubmitStatement creates a QUEUED job and starts background execution.
// It responds 202 immediately; callers poll GetStatement for the outcome.
func (h *Handler) SubmitStatement(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		writeError(w, domain.ErrValidation("sql is required"))
		return
	}

	subject, _ := middleware.SubjectFromContext(r.Context())
	job, err := h.ledger.CreateJob(r.Context(), &domain.Job{
		SQLText:     req.SQL,
		SubmittedBy: subject,
		Status:      domain.JobStatusQueued,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	go h.runInBackground(job.Handle)

	writeJSON(w, http.StatusAccepted, toJobResponse(job))
}

// runInBackground executes one job under the concurrency cap. The request
// context is gone by now; execution gets its own.
func (h *Handler) runInBackground(handle string) {
	ctx := context.Background()
	if err := h.sem.Acquire(ctx, 1); err != nil {
		h.logger.Error("acquire execution slot", "handle", handle, "error", err)
		return
	}
	defer h.sem.Release(1)

	if err := h.executor.Execute(ctx, handle); err != nil {
		h.logger.Error("background execution failed", "handle", handle, "error", err)
	}
}

// RunStatement executes an existing job synchronously and returns its final
// ledger record.
func (h *Handler) RunStatement(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	if err := h.executor.Execute(r.Context(), handle); err != nil {
		writeError(w, err)
		return
	}
	job, err := h.ledger.GetJob(r.Context(), handle)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

// GetStatement returns the ledger record for one job.
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	job, err := h.ledger.GetJob(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

// ListStatements returns recent jobs, newest first.
func (h *Handler) ListStatements(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, domain.ErrValidation("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	jobs, err := h.ledger.ListJobs(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, toJobResponse(&jobs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"statements": out})
}

// Health reports process liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
