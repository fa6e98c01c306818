package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"docanalyser/internal/domain"
	"docanalyser/internal/port"
)

// fileEntry is the persisted result shape written by FileSink.
type fileEntry struct {
	Category   domain.DocCategory `json:"category"`
	Confidence float64            `json:"confidence"`
	Fields     json.RawMessage    `json:"fields"`
	RawText    *string            `json:"raw_text"`
}

// FileSink keeps a JSON object on disk mapping each document to its analysis
// result. Entries are keyed by the record's source path, so equal base names
// in different directories stay apart; records without one fall back to the
// file name. Saving a key that is already present replaces its entry.
type FileSink struct {
	mu   sync.Mutex
	path string
}

// NewFileSink creates a FileSink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func entryKey(rec *domain.ResultRecord) string {
	if rec.SourcePath != "" {
		return rec.SourcePath
	}
	return rec.FileName
}

func (s *FileSink) Save(_ context.Context, rec *domain.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	fields := rec.Fields
	if len(fields) == 0 {
		fields = json.RawMessage("{}")
	}
	entries[entryKey(rec)] = fileEntry{
		Category:   rec.Category,
		Confidence: rec.Confidence,
		Fields:     fields,
		RawText:    rec.RawText,
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("FileSink.Save marshal: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("FileSink.Save mkdir: %w", err)
		}
	}
	// atomic replace
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("FileSink.Save write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("FileSink.Save rename: %w", err)
	}
	return nil
}

func (s *FileSink) load() (map[string]fileEntry, error) {
	entries := map[string]fileEntry{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FileSink.load: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("FileSink.load %s: %w", s.path, err)
	}
	return entries, nil
}

// ObjectSink archives each record as one JSON object in object storage,
// keyed by content hash so every analysis of the same bytes sits together.
type ObjectSink struct {
	store  port.ObjectStorage
	bucket string
	prefix string
}

// NewObjectSink creates an ObjectSink writing under prefix in bucket.
func NewObjectSink(store port.ObjectStorage, bucket, prefix string) *ObjectSink {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &ObjectSink{store: store, bucket: bucket, prefix: prefix}
}

// Key returns the object key for rec.
func (s *ObjectSink) Key(rec *domain.ResultRecord) string {
	return fmt.Sprintf("%s%s/%s.json", s.prefix, rec.SHA256, rec.ID)
}

func (s *ObjectSink) Save(ctx context.Context, rec *domain.ResultRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("ObjectSink.Save marshal: %w", err)
	}
	if _, err := s.store.Upload(ctx, port.UploadInput{
		Bucket:      s.bucket,
		Key:         s.Key(rec),
		Body:        bytes.NewReader(data),
		ContentType: "application/json",
	}); err != nil {
		return fmt.Errorf("ObjectSink.Save: %w", err)
	}
	return nil
}
