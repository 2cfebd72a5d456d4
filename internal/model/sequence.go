// Package model holds the plain data types shared between layers.
//
// Nothing here talks to the database or the network. The types are produced
// by the reconcile package, shaped into responses by handlers and rendered
// into emails by the job workers.
package model

import (
	"fmt"
	"time"
)

// SequenceDescriptor identifies one counter to maintain.
//
// TableName and IDColumnName are always derived from SequenceName, never
// looked up, so a descriptor can be rebuilt from the name alone.
type SequenceDescriptor struct {
	SequenceName string `json:"sequence_name"`
	TableName    string `json:"table_name"`
	IDColumnName string `json:"id_column_name"`
}

// OutcomeStatus is the tag of a ReconciliationOutcome.
type OutcomeStatus string

const (
	OutcomeApplied       OutcomeStatus = "applied"
	OutcomeSkippedNoRows OutcomeStatus = "skipped-no-rows"
	OutcomeFailed        OutcomeStatus = "failed"
)

// FailureKind names the step at which a failed outcome stopped.
type FailureKind string

const (
	FailureMalformedName FailureKind = "malformed_sequence_name"
	FailureQuery         FailureKind = "query_error"
	FailureReset         FailureKind = "reset_error"
)

// ReconciliationOutcome is the result of processing one registry entry.
//
// AppliedValue is set only for OutcomeApplied, FailureKind and FailureDetail
// only for OutcomeFailed.
type ReconciliationOutcome struct {
	SequenceName  string        `json:"sequence_name"`
	TableName     string        `json:"table_name,omitempty"`
	IDColumnName  string        `json:"id_column_name,omitempty"`
	Status        OutcomeStatus `json:"status"`
	AppliedValue  *int64        `json:"applied_value,omitempty"`
	FailureKind   FailureKind   `json:"failure_kind,omitempty"`
	FailureDetail string        `json:"failure_detail,omitempty"`
}

// Applied builds an applied outcome for d with the written counter value.
func Applied(d SequenceDescriptor, value int64) ReconciliationOutcome {
	return ReconciliationOutcome{
		SequenceName: d.SequenceName,
		TableName:    d.TableName,
		IDColumnName: d.IDColumnName,
		Status:       OutcomeApplied,
		AppliedValue: &value,
	}
}

// SkippedNoRows builds an outcome for an empty table whose counter was left alone.
func SkippedNoRows(d SequenceDescriptor) ReconciliationOutcome {
	return ReconciliationOutcome{
		SequenceName: d.SequenceName,
		TableName:    d.TableName,
		IDColumnName: d.IDColumnName,
		Status:       OutcomeSkippedNoRows,
	}
}

// Failed builds a failed outcome. d may only carry the sequence name when
// parsing itself failed.
func Failed(d SequenceDescriptor, kind FailureKind, err error) ReconciliationOutcome {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return ReconciliationOutcome{
		SequenceName:  d.SequenceName,
		TableName:     d.TableName,
		IDColumnName:  d.IDColumnName,
		Status:        OutcomeFailed,
		FailureKind:   kind,
		FailureDetail: detail,
	}
}

// BatchStatus summarizes a whole run.
type BatchStatus string

const (
	// BatchSuccess means no entry failed (an empty batch is a success too).
	BatchSuccess BatchStatus = "success"
	// BatchPartial means some, but not all, entries failed.
	BatchPartial BatchStatus = "partial"
	// BatchFailed means every entry failed.
	BatchFailed BatchStatus = "failed"
)

// BatchResult aggregates the outcomes of one synchronization run, in registry
// declaration order. It only lives for one request or one job execution.
type BatchResult struct {
	RegistryVersion int                     `json:"registry_version"`
	StartedAt       time.Time               `json:"started_at"`
	FinishedAt      time.Time               `json:"finished_at"`
	Outcomes        []ReconciliationOutcome `json:"outcomes"`
}

// BatchSummary holds per-status counts.
type BatchSummary struct {
	Total   int `json:"total"`
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Summary counts the outcomes by status.
func (b *BatchResult) Summary() BatchSummary {
	s := BatchSummary{Total: len(b.Outcomes)}
	for _, o := range b.Outcomes {
		switch o.Status {
		case OutcomeApplied:
			s.Applied++
		case OutcomeSkippedNoRows:
			s.Skipped++
		case OutcomeFailed:
			s.Failed++
		}
	}
	return s
}

// Status derives the aggregate status from the outcome counts.
func (b *BatchResult) Status() BatchStatus {
	s := b.Summary()
	switch {
	case s.Failed == 0:
		return BatchSuccess
	case s.Failed == s.Total:
		return BatchFailed
	default:
		return BatchPartial
	}
}

// Failures returns only the failed outcomes, keeping their order.
func (b *BatchResult) Failures() []ReconciliationOutcome {
	var out []ReconciliationOutcome
	for _, o := range b.Outcomes {
		if o.Status == OutcomeFailed {
			out = append(out, o)
		}
	}
	return out
}

// Duration is the wall time between the start and the end of the run.
func (b *BatchResult) Duration() time.Duration {
	return b.FinishedAt.Sub(b.StartedAt)
}

// Message is the human-readable line returned to the caller and used in logs.
func (b *BatchResult) Message() string {
	s := b.Summary()
	return fmt.Sprintf("sequence reset finished: %d applied, %d skipped, %d failed (of %d)",
		s.Applied, s.Skipped, s.Failed, s.Total)
}
