package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedMimeType = errors.New("unsupported mime type")
	ErrIngestionIO         = errors.New("ingestion i/o failure")
	ErrMissingAPIKey       = errors.New("api key is required")
	ErrMalformedResponse   = errors.New("malformed llm response")
	ErrNoSupportedFiles    = errors.New("no supported files found")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrNotFound            = errors.New("resource not found")
)

// UnsupportedMimeTypeError is returned when no block-building strategy exists
// for a file's MIME type.
type UnsupportedMimeTypeError struct {
	MIME string
	Path string
}

func (e *UnsupportedMimeTypeError) Error() string {
	return fmt.Sprintf("unsupported mime type: %s for %s", e.MIME, e.Path)
}

func (e *UnsupportedMimeTypeError) Is(target error) bool {
	return target == ErrUnsupportedMimeType
}

// IngestionIOError wraps a failure to open, read or decode an input file.
type IngestionIOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IngestionIOError) Error() string {
	return fmt.Sprintf("ingest %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *IngestionIOError) Unwrap() error {
	return e.Err
}

func (e *IngestionIOError) Is(target error) bool {
	return target == ErrIngestionIO
}
