// Package services wires the normalization pipeline to the record store
// and provides the read side used by the admin surface.
package services

import (
	"context"
	"fmt"

	"github.com/spellbank/backend/internal/audio"
	"github.com/spellbank/backend/internal/models"
)

// Normalizer converts an upload payload to the canonical audio format.
type Normalizer interface {
	Supported(ext string) bool
	Normalize(ctx context.Context, payload []byte, ext string) (*audio.Normalized, error)
}

// MetadataBuilder derives the stored metadata for an upload.
type MetadataBuilder interface {
	Build(req models.UploadRequest, norm *audio.Normalized) (*models.Metadata, error)
}

// RecordWriter is the slice of the store the ingestion path needs.
type RecordWriter interface {
	Write(ctx context.Context, payload []byte, meta *models.Metadata) (string, error)
}

// SubmitResult describes a successfully stored recording.
type SubmitResult struct {
	ID              string  `json:"id"`
	Label           string  `json:"label"`
	Username        string  `json:"username"`
	Checksum        string  `json:"checksum"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// IngestService runs one upload through normalize, build and write as a
// single synchronous unit of work. Normalization and metadata building
// are pure, so concurrent submissions need no coordination; the store
// is the only shared boundary.
type IngestService struct {
	normalizer Normalizer
	builder    MetadataBuilder
	store      RecordWriter
}

// NewIngestService creates a new ingest service.
func NewIngestService(normalizer Normalizer, builder MetadataBuilder, store RecordWriter) *IngestService {
	return &IngestService{
		normalizer: normalizer,
		builder:    builder,
		store:      store,
	}
}

// Submit validates and normalizes the upload, derives its metadata and
// writes the record. All validation and normalization errors are
// reported before the store is touched, so a failed submission never
// leaves a partial record.
func (s *IngestService) Submit(ctx context.Context, req models.UploadRequest) (*SubmitResult, error) {
	norm, err := s.normalizer.Normalize(ctx, req.Payload, req.Extension())
	if err != nil {
		return nil, fmt.Errorf("normalize upload: %w", err)
	}

	meta, err := s.builder.Build(req, norm)
	if err != nil {
		return nil, fmt.Errorf("build metadata: %w", err)
	}

	id, err := s.store.Write(ctx, norm.WAV, meta)
	if err != nil {
		return nil, fmt.Errorf("write record: %w", err)
	}

	return &SubmitResult{
		ID:              id,
		Label:           string(meta.Label),
		Username:        meta.Username,
		Checksum:        meta.Checksum,
		DurationSeconds: meta.DurationSeconds,
	}, nil
}
