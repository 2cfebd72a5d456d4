package email

import (
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/instrument-relay/internal/model"
)

// ReconciliationReport is the data behind TemplateReconciliationReport.
type ReconciliationReport struct {
	Trigger         string
	Status          string
	Message         string
	RegistryVersion int
	StartedAt       time.Time
	FinishedAt      time.Time
	Summary         model.BatchSummary
	Failures        []model.ReconciliationOutcome

	// Error is set when the run could not start at all.
	Error string
}

// NewReconciliationReport builds a report from a finished run, or from the
// orchestration error when result is nil.
func NewReconciliationReport(trigger string, result *model.BatchResult, runErr error) ReconciliationReport {
	if result == nil {
		report := ReconciliationReport{
			Trigger:    trigger,
			Status:     "error",
			Message:    "The reconciliation run could not start.",
			FinishedAt: time.Now(),
		}
		if runErr != nil {
			report.Error = runErr.Error()
		}
		return report
	}

	return ReconciliationReport{
		Trigger:         trigger,
		Status:          string(result.Status()),
		Message:         result.Message(),
		RegistryVersion: result.RegistryVersion,
		StartedAt:       result.StartedAt,
		FinishedAt:      result.FinishedAt,
		Summary:         result.Summary(),
		Failures:        result.Failures(),
	}
}

// Subject is the email subject line for r.
func (r ReconciliationReport) Subject() string {
	if r.Error != "" {
		return "[instrument-relay] sequence reconciliation could not run"
	}
	return fmt.Sprintf("[instrument-relay] sequence reconciliation %s: %d of %d failed",
		r.Status, r.Summary.Failed, r.Summary.Total)
}

// SendReconciliationReport emails report to to.
func (c *Client) SendReconciliationReport(ctx context.Context, to string, report ReconciliationReport) error {
	return c.SendEmail(ctx, to, report.Subject(), TemplateReconciliationReport, report)
}
