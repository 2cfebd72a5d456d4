package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConventionParser_Parse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		table    string
		idColumn string
	}{
		{
			name:     "table with underscore before the id column",
			input:    "thai_instrument_thaiinstrument_id_seq",
			table:    "thai_instrument",
			idColumn: "thaiinstrument_id",
		},
		{
			name:     "table sharing the entity prefix",
			input:    "quizz_instrument_quizz_id_seq",
			table:    "quizz_instrument",
			idColumn: "quizz_id",
		},
		{
			name:     "single segment table",
			input:    "user_user_id_seq",
			table:    "user",
			idColumn: "user_id",
		},
		{
			name:     "table with several underscores",
			input:    "legacy_media_archive_v2_media_id_seq",
			table:    "legacy_media_archive_v2",
			idColumn: "media_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := ConventionParser{}.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.input, desc.SequenceName)
			assert.Equal(t, tt.table, desc.TableName)
			assert.Equal(t, tt.idColumn, desc.IDColumnName)
		})
	}
}

func TestConventionParser_RoundTrip(t *testing.T) {
	tables := []string{"a", "answer_match", "x_y_z", "thai_instrument", "quizz_instrument"}
	columns := []string{"a_id", "thaiinstrument_id", "quizz_id"}

	for _, table := range tables {
		for _, column := range columns {
			name := table + "_" + column + "_seq"
			desc, err := ConventionParser{}.Parse(name)
			require.NoError(t, err, name)
			assert.Equal(t, table, desc.TableName, name)
			assert.Equal(t, column, desc.IDColumnName, name)
		}
	}
}

func TestConventionParser_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"user_user_id",
		"user_user_id_sequence",
		"_seq",
		"id_seq",
		"user_id_seq",
		"user__id_seq",
		"_user_id_seq",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := ConventionParser{}.Parse(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedSequenceName)
		})
	}
}

func TestDefaultSequencesParse(t *testing.T) {
	for _, name := range DefaultSequences {
		_, err := ConventionParser{}.Parse(name)
		assert.NoError(t, err, name)
	}
}
