package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spellbank/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metaFor(label models.Label, username string, createdAt time.Time) *models.Metadata {
	return &models.Metadata{
		Label:            label,
		Username:         username,
		RawUsername:      username,
		OriginalFilename: "clip.wav",
		Checksum:         "cafe",
		DurationSeconds:  0.8,
		SampleRate:       16000,
		Format:           "wav",
		CreatedAt:        createdAt,
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	meta := metaFor("Lumos", "harry", time.Now().UTC())

	id, err := s.Write(ctx, []byte("payload"), meta)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	record, err := s.Get(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, record.ID)
	assert.Equal(t, *meta, record.Metadata)
	assert.Equal(t, []byte("payload"), record.Payload)
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	oldID, err := s.Write(ctx, []byte("a"), metaFor("Lumos", "harry", base))
	require.NoError(t, err)
	midID, err := s.Write(ctx, []byte("b"), metaFor("Nox", "ron", base.Add(time.Minute)))
	require.NoError(t, err)
	newID, err := s.Write(ctx, []byte("c"), metaFor("Lumos", "harry", base.Add(2*time.Minute)))
	require.NoError(t, err)

	summaries, err := s.List(ctx, Filter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, newID, summaries[0].ID)
	assert.Equal(t, midID, summaries[1].ID)
	assert.Equal(t, oldID, summaries[2].ID)

	// Filtering
	lumosOnly, err := s.List(ctx, Filter{Label: "Lumos"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, lumosOnly, 2)

	ronOnly, err := s.List(ctx, Filter{Username: "ron"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, ronOnly, 1)
	assert.Equal(t, midID, ronOnly[0].ID)

	// Pagination
	page, err := s.List(ctx, Filter{}, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, midID, page[0].ID)
}

func TestMemoryStore_Count(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 2; i++ {
		_, err := s.Write(ctx, []byte("a"), metaFor("Lumos", "harry", now))
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := s.Write(ctx, []byte("b"), metaFor("Nox", "ron", now))
		require.NoError(t, err)
	}

	byLabel, err := s.Count(ctx, GroupByLabel)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Lumos": 2, "Nox": 3}, byLabel)

	byUser, err := s.Count(ctx, GroupByUsername)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"harry": 2, "ron": 3}, byUser)

	total, err := s.Count(ctx, GroupByNone)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{TotalKey: 5}, total)

	// Sum of grouped counts equals the unfiltered list length
	all, err := s.List(ctx, Filter{}, 100, 0)
	require.NoError(t, err)
	sum := 0
	for _, count := range byLabel {
		sum += count
	}
	assert.Equal(t, len(all), sum)
}

func TestMemoryStore_CountEmpty(t *testing.T) {
	s := NewMemoryStore()

	counts, err := s.Count(context.Background(), GroupByLabel)

	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Write(ctx, []byte("payload"), metaFor("Reparo", "neville", time.Now().UTC()))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id))

	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.Delete(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ConcurrentWrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	const n = 50
	ids := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			id, err := s.Write(ctx, []byte(fmt.Sprintf("payload-%d", i)), metaFor("Accio", "harry", now))
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	// Every write produced a distinct, retrievable record
	seen := map[string]bool{}
	for _, id := range ids {
		require.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true

		_, err := s.Get(ctx, id)
		assert.NoError(t, err)
	}

	counts, err := s.Count(ctx, GroupByNone)
	require.NoError(t, err)
	assert.Equal(t, n, counts[TotalKey])
}
