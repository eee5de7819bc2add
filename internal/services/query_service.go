package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spellbank/backend/internal/models"
	"github.com/spellbank/backend/internal/store"
	"go.uber.org/zap"
)

// exportPageSize bounds how many summaries are held in memory per page
// during a bulk export.
const exportPageSize = 100

// indexColumns is the stable column order of the export index file.
var indexColumns = []string{
	"recordId", "label", "username", "timestamp", "duration", "originalFilename", "checksum",
}

// ExportResult is the per-record accounting of a bulk export.
type ExportResult struct {
	Exported int `json:"exported"`
	Skipped  int `json:"skipped"`
}

// QueryService is the read side over the record store: counts, recent
// listings and bulk export. All reads reflect current store state;
// nothing is cached.
type QueryService struct {
	store  store.RecordStore
	logger *zap.Logger
}

// NewQueryService creates a new query service.
func NewQueryService(recordStore store.RecordStore, logger *zap.Logger) *QueryService {
	return &QueryService{
		store:  recordStore,
		logger: logger,
	}
}

// Counts returns record counts grouped by the given key.
func (s *QueryService) Counts(ctx context.Context, groupBy store.GroupBy) (map[string]int, error) {
	return s.store.Count(ctx, groupBy)
}

// ListRecent returns up to limit record summaries, newest first.
func (s *QueryService) ListRecent(ctx context.Context, limit int) ([]models.RecordSummary, error) {
	return s.store.List(ctx, store.Filter{}, limit, 0)
}

// List returns record summaries matching the filter, newest first.
func (s *QueryService) List(ctx context.Context, filter store.Filter, limit, offset int) ([]models.RecordSummary, error) {
	return s.store.List(ctx, filter, limit, offset)
}

// Get returns the full record for id.
func (s *QueryService) Get(ctx context.Context, id string) (*models.Record, error) {
	return s.store.Get(ctx, id)
}

// Delete removes the record's payload and metadata together.
func (s *QueryService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// ExportAll writes every record's payload to destDir/<label>/<id>.wav
// and one row per record to the index file at indexPath. Records whose
// payload cannot be read are skipped and counted, never aborting the
// batch. The export is idempotent on the destination tree (same-named
// files are overwritten) but not transactional: an interrupted export
// must be re-run.
//
// Pages are fetched with a bounded size so peak memory does not grow
// with store size, and ctx is checked once per page so a long export
// can be cancelled between pages.
func (s *QueryService) ExportAll(ctx context.Context, destDir, indexPath string) (ExportResult, error) {
	result := ExportResult{}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return result, fmt.Errorf("create export dir: %w", err)
	}
	if dir := filepath.Dir(indexPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return result, fmt.Errorf("create index dir: %w", err)
		}
	}

	indexFile, err := os.Create(indexPath)
	if err != nil {
		return result, fmt.Errorf("create index file: %w", err)
	}
	defer indexFile.Close()

	w := csv.NewWriter(indexFile)
	if err := w.Write(indexColumns); err != nil {
		return result, fmt.Errorf("write index header: %w", err)
	}

	for offset := 0; ; offset += exportPageSize {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("export cancelled: %w", err)
		}

		page, err := s.store.List(ctx, store.Filter{}, exportPageSize, offset)
		if err != nil {
			return result, fmt.Errorf("list records: %w", err)
		}
		if len(page) == 0 {
			break
		}

		for _, summary := range page {
			if err := s.exportOne(ctx, destDir, w, summary); err != nil {
				s.logger.Warn("skipping record during export",
					zap.String("id", summary.ID),
					zap.Error(err),
				)
				result.Skipped++
				continue
			}
			result.Exported++
		}

		if len(page) < exportPageSize {
			break
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return result, fmt.Errorf("flush index: %w", err)
	}

	return result, nil
}

func (s *QueryService) exportOne(ctx context.Context, destDir string, w *csv.Writer, summary models.RecordSummary) error {
	record, err := s.store.Get(ctx, summary.ID)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	labelDir := filepath.Join(destDir, summary.Metadata.Label.Slug())
	if err := os.MkdirAll(labelDir, 0755); err != nil {
		return fmt.Errorf("create label dir: %w", err)
	}

	path := filepath.Join(labelDir, summary.ID+"."+summary.Metadata.Format)
	if err := os.WriteFile(path, record.Payload, 0644); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	meta := summary.Metadata
	return w.Write([]string{
		summary.ID,
		string(meta.Label),
		meta.Username,
		meta.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		strconv.FormatFloat(meta.DurationSeconds, 'f', 3, 64),
		meta.OriginalFilename,
		meta.Checksum,
	})
}
