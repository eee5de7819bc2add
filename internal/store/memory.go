package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/spellbank/backend/internal/models"
)

// memoryStore is an in-process RecordStore used in tests and local
// development. It honours the same contract as the MySQL store.
type memoryStore struct {
	mu      sync.RWMutex
	records map[string]*memoryRecord
	seq     int
}

type memoryRecord struct {
	meta    models.Metadata
	payload []byte
	seq     int
}

// NewMemoryStore creates an empty in-memory RecordStore.
func NewMemoryStore() *memoryStore {
	return &memoryStore{
		records: make(map[string]*memoryRecord),
	}
}

func (s *memoryStore) Write(_ context.Context, payload []byte, meta *models.Metadata) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	if _, exists := s.records[id]; exists {
		return "", fmt.Errorf("%w: id %s", ErrWriteConflict, id)
	}

	s.seq++
	stored := make([]byte, len(payload))
	copy(stored, payload)
	s.records[id] = &memoryRecord{
		meta:    *meta,
		payload: stored,
		seq:     s.seq,
	}

	return id, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", ErrNotFound, id)
	}

	payload := make([]byte, len(rec.payload))
	copy(payload, rec.payload)

	return &models.Record{
		ID:       id,
		Metadata: rec.meta,
		Payload:  payload,
	}, nil
}

func (s *memoryStore) List(_ context.Context, filter Filter, limit, offset int) ([]models.RecordSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type entry struct {
		id  string
		rec *memoryRecord
	}
	var entries []entry
	for id, rec := range s.records {
		if filter.Label != "" && rec.meta.Label != filter.Label {
			continue
		}
		if filter.Username != "" && rec.meta.Username != filter.Username {
			continue
		}
		entries = append(entries, entry{id: id, rec: rec})
	}

	// Newest first; the write sequence breaks creation-time ties
	sort.Slice(entries, func(i, j int) bool {
		ti, tj := entries[i].rec.meta.CreatedAt, entries[j].rec.meta.CreatedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return entries[i].rec.seq > entries[j].rec.seq
	})

	summaries := []models.RecordSummary{}
	for i := offset; i < len(entries) && len(summaries) < limit; i++ {
		summaries = append(summaries, models.RecordSummary{
			ID:       entries[i].id,
			Metadata: entries[i].rec.meta,
		})
	}

	return summaries, nil
}

func (s *memoryStore) Count(_ context.Context, groupBy GroupBy) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int{}
	switch groupBy {
	case GroupByNone:
		counts[TotalKey] = len(s.records)
	case GroupByLabel:
		for _, rec := range s.records {
			counts[string(rec.meta.Label)]++
		}
	case GroupByUsername:
		for _, rec := range s.records {
			counts[rec.meta.Username]++
		}
	default:
		return nil, fmt.Errorf("unknown grouping %q", groupBy)
	}

	return counts, nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	delete(s.records, id)

	return nil
}
