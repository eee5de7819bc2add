package models

import (
	"regexp"
	"strings"
	"time"
)

// Label is one of the fixed spell names a recording is tagged with.
// The valid set comes from configuration, not from code.
type Label string

// LabelSet is the closed set of labels accepted for uploads.
type LabelSet struct {
	ordered []Label
	members map[Label]struct{}
}

// NewLabelSet builds a LabelSet from the configured label names,
// preserving order and dropping empty entries.
func NewLabelSet(names []string) *LabelSet {
	set := &LabelSet{
		members: make(map[Label]struct{}, len(names)),
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		label := Label(name)
		if _, ok := set.members[label]; ok {
			continue
		}
		set.ordered = append(set.ordered, label)
		set.members[label] = struct{}{}
	}
	return set
}

// Contains reports whether label is a member of the set.
func (s *LabelSet) Contains(label Label) bool {
	_, ok := s.members[label]
	return ok
}

// Labels returns the labels in configuration order.
func (s *LabelSet) Labels() []Label {
	out := make([]Label, len(s.ordered))
	copy(out, s.ordered)
	return out
}

var slugPattern = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Slug returns a filesystem-safe form of the label, used for export
// directory names ("Wingardium Leviosa" -> "wingardium_leviosa").
func (l Label) Slug() string {
	slug := slugPattern.ReplaceAllString(string(l), "_")
	slug = strings.Trim(slug, "_")
	return strings.ToLower(slug)
}

// UploadRequest is the transient input to the ingestion pipeline.
type UploadRequest struct {
	Payload  []byte
	Filename string
	Label    Label
	Username string
}

// Extension returns the declared extension of the source filename
// without the leading dot, lowercased.
func (r UploadRequest) Extension() string {
	idx := strings.LastIndex(r.Filename, ".")
	if idx < 0 || idx == len(r.Filename)-1 {
		return ""
	}
	return strings.ToLower(r.Filename[idx+1:])
}

// Metadata describes a stored recording. It is immutable after the
// record is written.
type Metadata struct {
	Label              Label     `json:"label" db:"label"`
	Username           string    `json:"username" db:"username"`
	RawUsername        string    `json:"rawUsername" db:"raw_username"`
	OriginalFilename   string    `json:"originalFilename" db:"original_filename"`
	Checksum           string    `json:"checksum" db:"checksum"`
	DurationSeconds    float64   `json:"durationSeconds" db:"duration_seconds"`
	OriginalSampleRate int       `json:"originalSampleRate" db:"original_sample_rate"`
	OriginalChannels   int       `json:"originalChannels" db:"original_channels"`
	SizeBytes          int64     `json:"sizeBytes" db:"size_bytes"`
	SampleRate         int       `json:"sampleRate" db:"sample_rate"`
	Format             string    `json:"format" db:"format"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
}

// RecordSummary is a record without its payload bytes, returned by
// list operations.
type RecordSummary struct {
	ID       string   `json:"id"`
	Metadata Metadata `json:"metadata"`
}

// Record is the durable unit of storage: normalized audio plus its
// metadata, addressed by one identifier.
type Record struct {
	ID       string   `json:"id"`
	Metadata Metadata `json:"metadata"`
	Payload  []byte   `json:"-"`
}
