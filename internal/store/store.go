// Package store persists normalized recordings with their metadata.
//
// A record is written as two parts: the payload blob and the metadata
// row. The blob goes first and is inert until the row references it;
// the row insert is the publish step. A crash between the two leaves an
// orphaned blob, never a row pointing at a missing blob.
package store

import (
	"context"
	"errors"

	"github.com/spellbank/backend/internal/models"
)

var (
	// ErrNotFound means no record exists under the requested identifier.
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable means the backing service could not be reached or
	// failed mid-operation. Callers may retry with backoff; the store
	// itself never retries.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrWriteConflict means the generated identifier collided with an
	// existing record. The write is not retried under the same id.
	ErrWriteConflict = errors.New("write conflict")
)

// GroupBy selects the grouping key for Count.
type GroupBy string

const (
	GroupByNone     GroupBy = "none"
	GroupByLabel    GroupBy = "label"
	GroupByUsername GroupBy = "username"
)

// TotalKey is the single map key returned by Count with GroupByNone.
const TotalKey = "total"

// Filter restricts List to records matching the set fields.
type Filter struct {
	Label    models.Label
	Username string
}

// RecordStore is the storage contract the ingestion pipeline and the
// query side program against. Implementations provide their own
// concurrency control; each Write call is atomic on its own.
type RecordStore interface {
	// Write persists payload and metadata as one logical record and
	// returns its identifier. No identifier is ever returned for a
	// partially written record.
	Write(ctx context.Context, payload []byte, meta *models.Metadata) (string, error)

	// Get returns the full record, payload included.
	Get(ctx context.Context, id string) (*models.Record, error)

	// List returns record summaries newest-first, optionally filtered.
	List(ctx context.Context, filter Filter, limit, offset int) ([]models.RecordSummary, error)

	// Count returns record counts keyed by the grouping field, or a
	// single TotalKey entry for GroupByNone.
	Count(ctx context.Context, groupBy GroupBy) (map[string]int, error)

	// Delete removes the record's metadata and payload together.
	Delete(ctx context.Context, id string) error
}
