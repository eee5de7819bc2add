// Package metadata derives the stored metadata record for an upload.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spellbank/backend/internal/audio"
	"github.com/spellbank/backend/internal/models"
)

var (
	// ErrInvalidUsername means the username is empty after sanitization.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrInvalidLabel means the label is not in the configured set.
	ErrInvalidLabel = errors.New("invalid label")
)

var (
	whitespaceRuns = regexp.MustCompile(`\s+`)
	disallowed     = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// Builder validates user-supplied fields and merges them with the
// attributes derived from normalization. It holds no mutable state and
// is safe for concurrent use.
type Builder struct {
	labels *models.LabelSet
	now    func() time.Time
}

// NewBuilder creates a Builder validating against the given label set.
func NewBuilder(labels *models.LabelSet) *Builder {
	return &Builder{labels: labels, now: time.Now}
}

// NewBuilderWithClock creates a Builder with an injected clock, used by
// tests that need a fixed creation time.
func NewBuilderWithClock(labels *models.LabelSet, now func() time.Time) *Builder {
	return &Builder{labels: labels, now: now}
}

// Build produces the metadata for an upload. The checksum covers the
// normalized payload, not the original upload, so re-encoded duplicates
// of the same signal hash identically. The creation timestamp is UTC
// wall-clock time at build time.
func (b *Builder) Build(req models.UploadRequest, norm *audio.Normalized) (*models.Metadata, error) {
	username, err := SanitizeUsername(req.Username)
	if err != nil {
		return nil, err
	}

	if !b.labels.Contains(req.Label) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLabel, req.Label)
	}

	sum := sha256.Sum256(norm.WAV)

	return &models.Metadata{
		Label:              req.Label,
		Username:           username,
		RawUsername:        req.Username,
		OriginalFilename:   req.Filename,
		Checksum:           hex.EncodeToString(sum[:]),
		DurationSeconds:    norm.DurationSeconds,
		OriginalSampleRate: norm.OriginalSampleRate,
		OriginalChannels:   norm.OriginalChannels,
		SizeBytes:          norm.SizeBytes,
		SampleRate:         audio.TargetSampleRate,
		Format:             "wav",
		CreatedAt:          b.now().UTC(),
	}, nil
}

// SanitizeUsername reduces a free-text username to a safe character
// subset: surrounding whitespace is stripped, internal whitespace runs
// collapse to a single underscore, characters outside [a-zA-Z0-9_-] are
// dropped and the result is lowercased. An empty result is an error,
// never silently replaced.
func SanitizeUsername(name string) (string, error) {
	name = strings.TrimSpace(name)
	name = whitespaceRuns.ReplaceAllString(name, "_")
	name = disallowed.ReplaceAllString(name, "")
	name = strings.ToLower(name)

	if name == "" {
		return "", ErrInvalidUsername
	}
	return name, nil
}
