package email

import (
	"errors"
	"time"

	"github.com/deppfellow/instrument-relay/internal/model"
)

// PreviewData holds sample data for every template, used to render
// previews and to check templates still execute.
var PreviewData = map[Template]any{
	TemplateReconciliationReport: previewReport(),
}

func previewReport() ReconciliationReport {
	started := time.Date(2026, 1, 15, 3, 0, 0, 0, time.UTC)
	result := &model.BatchResult{
		RegistryVersion: 1,
		StartedAt:       started,
		FinishedAt:      started.Add(420 * time.Millisecond),
		Outcomes: []model.ReconciliationOutcome{
			model.Applied(model.SequenceDescriptor{
				SequenceName: "quizz_instrument_quizz_id_seq",
				TableName:    "quizz_instrument",
				IDColumnName: "quizz_id",
			}, 128),
			model.Failed(model.SequenceDescriptor{
				SequenceName: "thai_instrument_thaiinstrument_id_seq",
				TableName:    "thai_instrument",
				IDColumnName: "thaiinstrument_id",
			}, model.FailureQuery, errors.New(`undefined table: relation "thai_instrument" does not exist (SQLSTATE 42P01)`)),
		},
	}
	return NewReconciliationReport("scheduled", result, nil)
}
