package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/spellbank/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBlobs is an in-memory BlobStorage test double.
type fakeBlobs struct {
	data      map[string][]byte
	putErr    error
	getErr    error
	deleteErr error
	deleted   []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{data: map[string][]byte{}}
}

func (f *fakeBlobs) Put(id string, payload []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.data[id] = payload
	return nil
}

func (f *fakeBlobs) Get(id string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	payload, ok := f.data[id]
	if !ok {
		return nil, os.ErrNotExist
	}
	return payload, nil
}

func (f *fakeBlobs) Delete(id string) error {
	f.deleted = append(f.deleted, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.data, id)
	return nil
}

func setupTestStore(t *testing.T) (*mysqlStore, sqlmock.Sqlmock, *fakeBlobs, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	blobs := newFakeBlobs()
	s := NewMySQLStore(db, blobs)

	cleanup := func() {
		db.Close()
	}

	return s, mock, blobs, cleanup
}

func testMeta() *models.Metadata {
	return &models.Metadata{
		Label:              "Lumos",
		Username:           "harry_potter",
		RawUsername:        "  Harry Potter!! ",
		OriginalFilename:   "lumos.wav",
		Checksum:           "deadbeef",
		DurationSeconds:    1.5,
		OriginalSampleRate: 44100,
		OriginalChannels:   2,
		SizeBytes:          48044,
		SampleRate:         16000,
		Format:             "wav",
		CreatedAt:          time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}
}

func summaryRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "label", "username", "raw_username", "original_filename", "checksum",
		"duration_seconds", "original_sample_rate", "original_channels", "size_bytes",
		"sample_rate", "format", "created_at",
	})
	for i, id := range ids {
		rows.AddRow(id, "Lumos", "harry_potter", "Harry", "lumos.wav", "deadbeef",
			1.5, 44100, 2, int64(48044), 16000, "wav",
			time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC).Add(-time.Duration(i)*time.Minute))
	}
	return rows
}

func TestMySQLStore_Write(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s, mock, blobs, cleanup := setupTestStore(t)
		defer cleanup()

		mock.ExpectExec(`INSERT INTO recordings`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		id, err := s.Write(context.Background(), []byte("wav bytes"), testMeta())

		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Equal(t, []byte("wav bytes"), blobs.data[id])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure removes blob", func(t *testing.T) {
		s, mock, blobs, cleanup := setupTestStore(t)
		defer cleanup()

		mock.ExpectExec(`INSERT INTO recordings`).
			WillReturnError(errors.New("connection refused"))

		_, err := s.Write(context.Background(), []byte("wav bytes"), testMeta())

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Len(t, blobs.deleted, 1)
		assert.Empty(t, blobs.data)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate id surfaces as write conflict", func(t *testing.T) {
		s, mock, blobs, cleanup := setupTestStore(t)
		defer cleanup()

		mock.ExpectExec(`INSERT INTO recordings`).
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

		_, err := s.Write(context.Background(), []byte("wav bytes"), testMeta())

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrWriteConflict)
		assert.Len(t, blobs.deleted, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("blob failure reported before any insert", func(t *testing.T) {
		s, mock, blobs, cleanup := setupTestStore(t)
		defer cleanup()

		blobs.putErr = errors.New("disk full")

		_, err := s.Write(context.Background(), []byte("wav bytes"), testMeta())

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMySQLStore_Get(t *testing.T) {
	t.Run("success round-trips payload and metadata", func(t *testing.T) {
		s, mock, blobs, cleanup := setupTestStore(t)
		defer cleanup()

		blobs.data["rec-1"] = []byte("wav bytes")
		mock.ExpectQuery(`SELECT (.+) FROM recordings WHERE id = \?`).
			WithArgs("rec-1").
			WillReturnRows(summaryRows("rec-1"))

		record, err := s.Get(context.Background(), "rec-1")

		require.NoError(t, err)
		assert.Equal(t, "rec-1", record.ID)
		assert.Equal(t, models.Label("Lumos"), record.Metadata.Label)
		assert.Equal(t, "harry_potter", record.Metadata.Username)
		assert.Equal(t, []byte("wav bytes"), record.Payload)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		s, mock, _, cleanup := setupTestStore(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT (.+) FROM recordings WHERE id = \?`).
			WithArgs("nope").
			WillReturnError(sql.ErrNoRows)

		_, err := s.Get(context.Background(), "nope")

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing blob", func(t *testing.T) {
		s, mock, _, cleanup := setupTestStore(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT (.+) FROM recordings WHERE id = \?`).
			WithArgs("rec-1").
			WillReturnRows(summaryRows("rec-1"))

		_, err := s.Get(context.Background(), "rec-1")

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		s, mock, _, cleanup := setupTestStore(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT (.+) FROM recordings WHERE id = \?`).
			WithArgs("rec-1").
			WillReturnError(errors.New("connection lost"))

		_, err := s.Get(context.Background(), "rec-1")

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMySQLStore_List(t *testing.T) {
	t.Run("no filter", func(t *testing.T) {
		s, mock, _, cleanup := setupTestStore(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT (.+) FROM recordings ORDER BY created_at DESC, id DESC LIMIT \? OFFSET \?`).
			WithArgs(10, 0).
			WillReturnRows(summaryRows("rec-1", "rec-2"))

		summaries, err := s.List(context.Background(), Filter{}, 10, 0)

		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, "rec-1", summaries[0].ID)
		assert.Equal(t, "rec-2", summaries[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filter by label and username", func(t *testing.T) {
		s, mock, _, cleanup := setupTestStore(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT (.+) FROM recordings WHERE label = \? AND username = \? ORDER BY created_at DESC, id DESC LIMIT \? OFFSET \?`).
			WithArgs("Lumos", "harry_potter", 10, 5).
			WillReturnRows(summaryRows("rec-3"))

		summaries, err := s.List(context.Background(), Filter{Label: "Lumos", Username: "harry_potter"}, 10, 5)

		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty store returns empty slice", func(t *testing.T) {
		s, mock, _, cleanup := setupTestStore(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT (.+) FROM recordings ORDER BY created_at DESC, id DESC LIMIT \? OFFSET \?`).
			WithArgs(10, 0).
			WillReturnRows(summaryRows())

		summaries, err := s.List(context.Background(), Filter{}, 10, 0)

		require.NoError(t, err)
		assert.Empty(t, summaries)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMySQLStore_Count(t *testing.T) {
	t.Run("by label", func(t *testing.T) {
		s, mock, _, cleanup := setupTestStore(t)
		defer cleanup()

		rows := sqlmock.NewRows([]string{"label", "count"}).
			AddRow("Lumos", 2).
			AddRow("Nox", 3)
		mock.ExpectQuery(`SELECT label, COUNT\(\*\) FROM recordings GROUP BY label`).
			WillReturnRows(rows)

		counts, err := s.Count(context.Background(), GroupByLabel)

		require.NoError(t, err)
		assert.Equal(t, map[string]int{"Lumos": 2, "Nox": 3}, counts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ungrouped total", func(t *testing.T) {
		s, mock, _, cleanup := setupTestStore(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM recordings`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

		counts, err := s.Count(context.Background(), GroupByNone)

		require.NoError(t, err)
		assert.Equal(t, map[string]int{TotalKey: 5}, counts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown grouping", func(t *testing.T) {
		s, _, _, cleanup := setupTestStore(t)
		defer cleanup()

		_, err := s.Count(context.Background(), GroupBy("bogus"))

		assert.Error(t, err)
	})
}

func TestMySQLStore_Delete(t *testing.T) {
	t.Run("removes row and blob", func(t *testing.T) {
		s, mock, blobs, cleanup := setupTestStore(t)
		defer cleanup()

		blobs.data["rec-1"] = []byte("wav bytes")
		mock.ExpectExec(`DELETE FROM recordings WHERE id = \?`).
			WithArgs("rec-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.Delete(context.Background(), "rec-1")

		require.NoError(t, err)
		assert.Empty(t, blobs.data)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing record", func(t *testing.T) {
		s, mock, _, cleanup := setupTestStore(t)
		defer cleanup()

		mock.ExpectExec(`DELETE FROM recordings WHERE id = \?`).
			WithArgs("nope").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.Delete(context.Background(), "nope")

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
