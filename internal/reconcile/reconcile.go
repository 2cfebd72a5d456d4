// Package reconcile keeps the store's auto-increment counters in line with the
// identifiers actually present in their tables.
//
// The flow for one run is:
//
//	Registry -> Parser -> Gateway.MaxIdentifier -> Gateway.ResetSequenceCounter
//
// Every registry entry is handled on its own: a malformed name, a failed
// max-id query or a failed reset is written into that entry's outcome and the
// run moves on. Only a registry that cannot be loaded stops a run, and that is
// reported as ErrOrchestration instead of a BatchResult.
package reconcile

import (
	"context"

	"github.com/pkg/errors"
)

// Error taxonomy. The first three are recorded per entry and never leave the
// Synchronizer; ErrOrchestration is returned to the caller.
var (
	ErrMalformedSequenceName = errors.New("malformed sequence name")
	ErrQuery                 = errors.New("max identifier query failed")
	ErrReset                 = errors.New("sequence counter reset failed")
	ErrOrchestration         = errors.New("sequence reconciliation could not run")
)

// Gateway is the slice of the data store the reconciler needs.
//
// MaxIdentifier reports ok=false when the table has no rows. ResetSequenceCounter
// overwrites the counter so that the next draw returns value+1.
type Gateway interface {
	MaxIdentifier(ctx context.Context, tableName, idColumnName string) (value int64, ok bool, err error)
	ResetSequenceCounter(ctx context.Context, sequenceName string, value int64) error
}
