package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/deppfellow/instrument-relay/internal/errs"
	"github.com/deppfellow/instrument-relay/internal/metrics"
	"github.com/deppfellow/instrument-relay/internal/middleware"
	"github.com/deppfellow/instrument-relay/internal/model"
	"github.com/deppfellow/instrument-relay/internal/reconcile"
	"github.com/deppfellow/instrument-relay/internal/server"
	"github.com/deppfellow/instrument-relay/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// ReconcileRequest is the optional body of a reconciliation call.
//
//	{"sequences": ["user_user_id_seq"], "async": true}
//
// An empty body reconciles the whole registry synchronously.
type ReconcileRequest struct {
	Sequences []string `json:"sequences" validate:"omitempty,max=256,dive,required,max=63"`
	Async     bool     `json:"async"`
}

func (r *ReconcileRequest) Validate() error {
	return validate.Struct(r)
}

// EmptyRequest is used by routes without a body.
type EmptyRequest struct{}

func (r *EmptyRequest) Validate() error {
	return nil
}

// ReconcileResponse is the 200 body of a synchronous run.
type ReconcileResponse struct {
	Status          model.BatchStatus             `json:"status"`
	Message         string                        `json:"message"`
	RegistryVersion int                           `json:"registry_version"`
	Summary         model.BatchSummary            `json:"summary"`
	Outcomes        []model.ReconciliationOutcome `json:"outcomes"`
	StartedAt       time.Time                     `json:"started_at"`
	FinishedAt      time.Time                     `json:"finished_at"`
}

// NewReconcileResponse shapes a BatchResult for the client.
func NewReconcileResponse(result *model.BatchResult) ReconcileResponse {
	outcomes := result.Outcomes
	if outcomes == nil {
		outcomes = []model.ReconciliationOutcome{}
	}
	return ReconcileResponse{
		Status:          result.Status(),
		Message:         result.Message(),
		RegistryVersion: result.RegistryVersion,
		Summary:         result.Summary(),
		Outcomes:        outcomes,
		StartedAt:       result.StartedAt,
		FinishedAt:      result.FinishedAt,
	}
}

// QueuedResponse is the 202 body of an async run.
type QueuedResponse struct {
	Status    string `json:"status"`
	TaskID    string `json:"task_id"`
	RequestID string `json:"request_id,omitempty"`
}

func (QueuedResponse) StatusCode() int {
	return http.StatusAccepted
}

// ReconcileRunner is the part of the reconcile service the handler uses.
type ReconcileRunner interface {
	Reconcile(ctx context.Context, trigger string, sequences []string) (*model.BatchResult, error)
	Enqueue(ctx context.Context, sequences []string, requestedBy, requestID string) (string, error)
	Describe(ctx context.Context) (*model.RegistryListing, error)
}

type ReconcileHandler struct {
	Handler
	reconciler ReconcileRunner
}

func NewReconcileHandler(s *server.Server, reconciler ReconcileRunner) *ReconcileHandler {
	return &ReconcileHandler{
		Handler:    NewHandler(s),
		reconciler: reconciler,
	}
}

// ResetAllSequences runs a reconciliation, or queues one when async is set.
//
// Responses:
//   - 200 with the batch report, whatever the per-entry outcomes
//   - 202 with the task id for async runs
//   - 400 when the body names sequences outside the registry
//   - 500 SEQUENCE_REGISTRY_UNAVAILABLE when the registry cannot be loaded
func (h *ReconcileHandler) ResetAllSequences(c echo.Context, req *ReconcileRequest) (any, error) {
	ctx := c.Request().Context()

	if req.Async {
		taskID, err := h.reconciler.Enqueue(ctx, req.Sequences, middleware.GetUserID(c), middleware.GetRequestID(c))
		if err != nil {
			return nil, reconcileError(err)
		}
		return QueuedResponse{
			Status:    "queued",
			TaskID:    taskID,
			RequestID: middleware.GetRequestID(c),
		}, nil
	}

	result, err := h.reconciler.Reconcile(ctx, metrics.TriggerHTTP, req.Sequences)
	if err != nil {
		return nil, reconcileError(err)
	}

	if txn := newrelic.FromContext(ctx); txn != nil {
		summary := result.Summary()
		txn.AddAttribute("reconcile.status", string(result.Status()))
		txn.AddAttribute("reconcile.registry_version", result.RegistryVersion)
		txn.AddAttribute("reconcile.applied", summary.Applied)
		txn.AddAttribute("reconcile.skipped", summary.Skipped)
		txn.AddAttribute("reconcile.failed", summary.Failed)
	}

	return NewReconcileResponse(result), nil
}

// ListSequences returns the registry and each entry's decoded table and
// column. The store is not touched.
func (h *ReconcileHandler) ListSequences(c echo.Context, _ *EmptyRequest) (*model.RegistryListing, error) {
	listing, err := h.reconciler.Describe(c.Request().Context())
	if err != nil {
		return nil, reconcileError(err)
	}
	return listing, nil
}

// ExportRegistry returns the active registry in the YAML layout accepted by
// reconciler.registry_file.
func (h *ReconcileHandler) ExportRegistry(c echo.Context, _ *EmptyRequest) ([]byte, error) {
	listing, err := h.reconciler.Describe(c.Request().Context())
	if err != nil {
		return nil, reconcileError(err)
	}

	names := make([]string, 0, len(listing.Sequences))
	for _, entry := range listing.Sequences {
		names = append(names, entry.SequenceName)
	}

	out, err := yaml.Marshal(struct {
		Version   int      `yaml:"version"`
		Sequences []string `yaml:"sequences"`
	}{listing.RegistryVersion, names})
	if err != nil {
		return nil, fmt.Errorf("failed to encode registry: %w", err)
	}
	return out, nil
}

// reconcileError maps service errors onto API errors.
func reconcileError(err error) error {
	var unknown *reconcile.UnknownNameError
	switch {
	case errors.As(err, &unknown):
		code := errs.CodeUnknownSequence
		fields := make([]errs.FieldError, 0, len(unknown.Names))
		for _, name := range unknown.Names {
			fields = append(fields, errs.FieldError{
				Field: "sequences",
				Error: fmt.Sprintf("%s is not in the registry", name),
			})
		}
		return errs.NewBadRequestError("Unknown sequence names", true, &code, fields, nil)

	case errors.Is(err, reconcile.ErrOrchestration):
		detail := strings.TrimPrefix(err.Error(), reconcile.ErrOrchestration.Error()+": ")
		return errs.NewOrchestrationError(reconcile.ErrOrchestration.Error(), detail)

	case errors.Is(err, service.ErrQueueUnavailable):
		e := errs.NewServiceUnavailableError("Background jobs are unavailable")
		e.Action = &errs.Action{Type: errs.ActionTypeRetry, Message: "Retry without async", Value: "async=false"}
		return e
	}
	return err
}
