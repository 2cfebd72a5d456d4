package reconcile

import (
	"strings"

	"github.com/deppfellow/instrument-relay/internal/model"
	"github.com/pkg/errors"
)

// sequenceSuffix is the literal every managed counter name ends with.
const sequenceSuffix = "_seq"

// Parser decodes a sequence name into the table and column it numbers.
//
// ConventionParser is the only implementation today. A catalog-backed parser
// (pg_depend / information_schema) can replace it without touching the
// Synchronizer.
type Parser interface {
	Parse(sequenceName string) (model.SequenceDescriptor, error)
}

// ConventionParser decodes names of the form <table>_<entity>_id_seq.
type ConventionParser struct{}

// Parse splits sequenceName into (table, idColumn).
//
// The id column is always the last two underscore segments before "_seq", so
// it is taken first. The table is whatever is left in front of it, which keeps
// tables with underscores in their own name intact:
//
//	thai_instrument_thaiinstrument_id_seq -> thai_instrument, thaiinstrument_id
func (ConventionParser) Parse(sequenceName string) (model.SequenceDescriptor, error) {
	if !strings.HasSuffix(sequenceName, sequenceSuffix) {
		return model.SequenceDescriptor{}, errors.Wrapf(ErrMalformedSequenceName, "%q: missing %q suffix", sequenceName, sequenceSuffix)
	}

	stem := strings.TrimSuffix(sequenceName, sequenceSuffix)
	segments := strings.Split(stem, "_")
	if len(segments) < 2 {
		return model.SequenceDescriptor{}, errors.Wrapf(ErrMalformedSequenceName, "%q: need at least two segments before %q", sequenceName, sequenceSuffix)
	}
	for _, seg := range segments {
		if seg == "" {
			return model.SequenceDescriptor{}, errors.Wrapf(ErrMalformedSequenceName, "%q: empty segment", sequenceName)
		}
	}

	idColumn := strings.Join(segments[len(segments)-2:], "_")

	// Drop the column plus the underscore that joins it to the table.
	tableLen := len(stem) - len(idColumn) - 1
	if tableLen <= 0 {
		return model.SequenceDescriptor{}, errors.Wrapf(ErrMalformedSequenceName, "%q: no table name in front of %q", sequenceName, idColumn)
	}

	return model.SequenceDescriptor{
		SequenceName: sequenceName,
		TableName:    stem[:tableLen],
		IDColumnName: idColumn,
	}, nil
}
