package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/spellbank/backend/internal/models"
)

const summaryColumns = `id, label, username, raw_username, original_filename, checksum,
		duration_seconds, original_sample_rate, original_channels, size_bytes,
		sample_rate, format, created_at`

// mysqlStore implements RecordStore with metadata rows in MySQL and
// payloads in a BlobStorage.
type mysqlStore struct {
	db    *sql.DB
	blobs BlobStorage
}

// NewMySQLStore creates a RecordStore backed by db and blobs.
func NewMySQLStore(db *sql.DB, blobs BlobStorage) *mysqlStore {
	return &mysqlStore{
		db:    db,
		blobs: blobs,
	}
}

// Write stores the payload blob first and publishes it with the
// metadata row. If the insert fails the blob is removed so no
// identifier ever refers to a partial record.
func (s *mysqlStore) Write(ctx context.Context, payload []byte, meta *models.Metadata) (string, error) {
	id := uuid.New().String()

	if err := s.blobs.Put(id, payload); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	query := `
		INSERT INTO recordings (` + summaryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		id,
		meta.Label,
		meta.Username,
		meta.RawUsername,
		meta.OriginalFilename,
		meta.Checksum,
		meta.DurationSeconds,
		meta.OriginalSampleRate,
		meta.OriginalChannels,
		meta.SizeBytes,
		meta.SampleRate,
		meta.Format,
		meta.CreatedAt,
	)
	if err != nil {
		// Cleanup: the unreferenced blob must not outlive a failed publish
		s.blobs.Delete(id)

		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return "", fmt.Errorf("%w: id %s", ErrWriteConflict, id)
		}
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return id, nil
}

// Get retrieves the full record, payload included.
func (s *mysqlStore) Get(ctx context.Context, id string) (*models.Record, error) {
	query := `
		SELECT ` + summaryColumns + `
		FROM recordings
		WHERE id = ?
		LIMIT 1
	`

	record := &models.Record{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.Metadata.Label,
		&record.Metadata.Username,
		&record.Metadata.RawUsername,
		&record.Metadata.OriginalFilename,
		&record.Metadata.Checksum,
		&record.Metadata.DurationSeconds,
		&record.Metadata.OriginalSampleRate,
		&record.Metadata.OriginalChannels,
		&record.Metadata.SizeBytes,
		&record.Metadata.SampleRate,
		&record.Metadata.Format,
		&record.Metadata.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	payload, err := s.blobs.Get(id)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: payload for id %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	record.Payload = payload

	return record, nil
}

// List returns record summaries newest-first. The identifier breaks
// ties between records created in the same millisecond.
func (s *mysqlStore) List(ctx context.Context, filter Filter, limit, offset int) ([]models.RecordSummary, error) {
	query := `
		SELECT ` + summaryColumns + `
		FROM recordings
	`
	var (
		conds []string
		args  []any
	)
	if filter.Label != "" {
		conds = append(conds, "label = ?")
		args = append(args, filter.Label)
	}
	if filter.Username != "" {
		conds = append(conds, "username = ?")
		args = append(args, filter.Username)
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	summaries := []models.RecordSummary{}
	for rows.Next() {
		var summary models.RecordSummary
		if err := rows.Scan(
			&summary.ID,
			&summary.Metadata.Label,
			&summary.Metadata.Username,
			&summary.Metadata.RawUsername,
			&summary.Metadata.OriginalFilename,
			&summary.Metadata.Checksum,
			&summary.Metadata.DurationSeconds,
			&summary.Metadata.OriginalSampleRate,
			&summary.Metadata.OriginalChannels,
			&summary.Metadata.SizeBytes,
			&summary.Metadata.SampleRate,
			&summary.Metadata.Format,
			&summary.Metadata.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return summaries, nil
}

// Count returns record counts keyed by the grouping field.
func (s *mysqlStore) Count(ctx context.Context, groupBy GroupBy) (map[string]int, error) {
	counts := map[string]int{}

	var column string
	switch groupBy {
	case GroupByLabel:
		column = "label"
	case GroupByUsername:
		column = "username"
	case GroupByNone:
		var total int
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recordings`).Scan(&total)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		counts[TotalKey] = total
		return counts, nil
	default:
		return nil, fmt.Errorf("unknown grouping %q", groupBy)
	}

	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM recordings GROUP BY %s`, column, column)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		counts[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return counts, nil
}

// Delete unpublishes the record by removing its row first, then the
// payload blob. A leftover blob after a crash is reclaimable garbage; a
// row without a blob would be a broken record.
func (s *mysqlStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}

	if err := s.blobs.Delete(id); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return nil
}
